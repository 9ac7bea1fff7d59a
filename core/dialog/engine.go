package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/state"
	"github.com/m3rciful/refbot/core/ui"
)

// ErrUnknownDialog is returned when a session or trigger names an unregistered dialog.
var ErrUnknownDialog = errors.New("dialog: unknown dialog")

// Step collects one field from the user.
type Step struct {
	Field  string
	Prompt func(data map[string]string) Reply
	// Validate rejects input with a user-facing message; the step is repeated.
	Validate func(value string) error
	// Exits are literal inputs that end the dialog without running Finish.
	Exits []string
	// AcceptAny steps take any input, blank included.
	AcceptAny bool
}

// Dialog is a named linear sequence of steps and its terminal effect.
type Dialog struct {
	Name   string
	Steps  []Step
	Exit   Reply
	Finish func(ctx context.Context, turn Turn, data map[string]string) (Reply, error)
}

// InvalidInput is returned by validators; its message is shown to the user.
type InvalidInput struct{ Message string }

func (e *InvalidInput) Error() string { return e.Message }

// Engine drives dialogs using a session tracker.
type Engine struct {
	tracker state.Tracker
	dialogs map[string]*Dialog
}

// NewEngine registers dialogs against tracker.
func NewEngine(tracker state.Tracker, dialogs ...*Dialog) *Engine {
	e := &Engine{tracker: tracker, dialogs: make(map[string]*Dialog, len(dialogs))}
	for _, d := range dialogs {
		e.dialogs[d.Name] = d
	}
	return e
}

// Begin starts dialog name for the user, replacing any session in progress, and
// returns the first prompt.
func (e *Engine) Begin(ctx context.Context, turn Turn, name string) (Reply, error) {
	d, ok := e.dialogs[name]
	if !ok || len(d.Steps) == 0 {
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownDialog, name)
	}
	if prev, had := e.tracker.Active(turn.UserID); had {
		logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "dialog.abandon",
			slog.Int64("user_id", turn.UserID),
			slog.String("dialog", prev),
		)
	}
	e.tracker.Begin(turn.UserID, name)
	logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "dialog.begin",
		slog.Int64("user_id", turn.UserID),
		slog.String("dialog", name),
	)
	return d.Steps[0].Prompt(nil), nil
}

// Active reports the user's dialog, if any.
func (e *Engine) Active(userID int64) (string, bool) {
	return e.tracker.Active(userID)
}

// Cancel drops the user's session.
func (e *Engine) Cancel(userID int64) {
	e.tracker.Clear(userID)
}

// Advance feeds turn into the user's active dialog.
func (e *Engine) Advance(ctx context.Context, turn Turn) (Reply, error) {
	sess, ok := e.tracker.Get(turn.UserID)
	if !ok {
		return Reply{}, fmt.Errorf("dialog: advance: no session for user %d", turn.UserID)
	}
	d, ok := e.dialogs[sess.Dialog]
	if !ok || sess.Step < 0 || sess.Step >= len(d.Steps) {
		e.tracker.Clear(turn.UserID)
		return Reply{}, fmt.Errorf("%w: %q step %d", ErrUnknownDialog, sess.Dialog, sess.Step)
	}
	step := d.Steps[sess.Step]
	value := strings.TrimSpace(turn.Text)

	for _, exit := range step.Exits {
		if value == exit {
			e.tracker.Clear(turn.UserID)
			logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "dialog.exit",
				slog.Int64("user_id", turn.UserID),
				slog.String("dialog", d.Name),
				slog.Int("step", sess.Step),
			)
			return d.Exit, nil
		}
	}

	if value == "" && !step.AcceptAny {
		return Reply{Text: ui.EmptyInput}, nil
	}
	if step.Validate != nil {
		if err := step.Validate(value); err != nil {
			var invalid *InvalidInput
			if errors.As(err, &invalid) {
				return Reply{Text: invalid.Message}, nil
			}
			return Reply{}, fmt.Errorf("dialog: validate %s.%s: %w", d.Name, step.Field, err)
		}
	}

	e.tracker.SetField(turn.UserID, step.Field, value)
	next := sess.Step + 1
	if next < len(d.Steps) {
		e.tracker.SetStep(turn.UserID, next)
		logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "dialog.step",
			slog.Int64("user_id", turn.UserID),
			slog.String("dialog", d.Name),
			slog.Int("step", next),
		)
		return d.Steps[next].Prompt(e.tracker.Data(turn.UserID)), nil
	}

	// The session ends before the terminal effect so a failing effect cannot
	// leave the user stuck inside the dialog.
	data := e.tracker.Data(turn.UserID)
	e.tracker.Clear(turn.UserID)
	reply, err := d.Finish(ctx, turn, data)
	if err != nil {
		return Reply{}, fmt.Errorf("dialog: finish %s: %w", d.Name, err)
	}
	logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "dialog.finish",
		slog.Int64("user_id", turn.UserID),
		slog.String("dialog", d.Name),
	)
	return reply, nil
}
