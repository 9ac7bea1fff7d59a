// Package dialog runs the fixed set of linear multi-turn conversations.
package dialog

import (
	"context"

	"github.com/m3rciful/refbot/core/store"
)

// Keyboard names the reply layout a transport should attach to a reply.
type Keyboard int

const (
	// KeyboardKeep leaves whatever keyboard the user currently has.
	KeyboardKeep Keyboard = iota
	KeyboardMain
	KeyboardStats
	KeyboardFavorites
	KeyboardConfirm
	// KeyboardJoin is the inline subscribe + verify prompt.
	KeyboardJoin
)

func (k Keyboard) String() string {
	switch k {
	case KeyboardMain:
		return "main"
	case KeyboardStats:
		return "stats"
	case KeyboardFavorites:
		return "favorites"
	case KeyboardConfirm:
		return "confirm"
	case KeyboardJoin:
		return "join"
	default:
		return "keep"
	}
}

// Turn is one inbound user message, stripped of transport details.
type Turn struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	Text        string
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Recorder is the slice of the persistent store the dialogs write to.
type Recorder interface {
	AppendInteraction(ctx context.Context, userID int64, displayName string, kind store.Kind, text string) error
	AddFavorite(ctx context.Context, userID int64, kind store.Kind, text string) error
	RemoveFavorite(ctx context.Context, userID int64, text string) (int64, error)
}

// Encyclopedia looks up an article summary. found=false is a normal outcome.
type Encyclopedia interface {
	Lookup(ctx context.Context, query string) (summary string, found bool, err error)
}

// Translator translates text with auto-detected source language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Notifier delivers a message to the administrator.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}
