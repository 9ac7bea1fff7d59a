// Package callbacks decodes the data telebot packs into inline buttons,
// "\f<unique>|<payload>".
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the unique id and payload of cb. telebot fills cb.Unique itself when
// a handler is registered for the button; otherwise the raw data is decoded.
func Split(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return Decode(cb.Data)
}

// Decode parses raw callback data. Data without the leading form feed is taken as a
// bare unique id.
func Decode(data string) (unique, payload string) {
	unique, payload, _ = strings.Cut(strings.TrimPrefix(data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}
