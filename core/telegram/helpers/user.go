package helpers

import (
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// DisplayName is the name recorded with a user's interactions: the username when set,
// otherwise the numeric id.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}
