// Package commands describes the slash commands a bot publishes to Telegram.
package commands

// Command is the published metadata of one slash command. Routing is done by the
// text router, so no handler is attached here.
type Command struct {
	Description string
	AdminOnly   bool
	Hidden      bool
}
