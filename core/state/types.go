package state

// Session is the in-flight dialog of one user.
type Session struct {
	Dialog string
	Step   int
	Data   map[string]string
}

// Tracker stores at most one session per user.
type Tracker interface {
	// Begin starts dialog for the user at step 0, discarding any previous session.
	Begin(userID int64, dialog string)
	// SetField records a collected value. It is a no-op when the user has no session.
	SetField(userID int64, field, value string)
	// SetStep moves the session cursor. It is a no-op when the user has no session.
	SetStep(userID int64, step int)
	// Get returns a copy of the session.
	Get(userID int64) (Session, bool)
	// Data returns a copy of the collected values, empty when there is no session.
	Data(userID int64) map[string]string
	// Active reports the dialog name of the user's session.
	Active(userID int64) (string, bool)
	Clear(userID int64)
}
