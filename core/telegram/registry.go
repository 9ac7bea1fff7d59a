package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration rejects commands without a "/" name or description and
	// callbacks without a key or handler.
	ErrInvalidRegistration = errors.New("telegram registry: invalid registration")
	// ErrDuplicate rejects a second registration under the same name.
	ErrDuplicate = errors.New("telegram registry: already registered")
)

// Registry is the wiring-time catalogue of slash commands (for the Bot API command
// menu) and inline-button callbacks keyed by their unique id.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback handler just answers
// the button press.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Неизвестное действие"})
		},
	}
}

// RegisterCommand records name (with its leading slash) for the command menu.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || strings.TrimSpace(cmd.Description) == "" {
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("%w: command %q", ErrDuplicate, name)
	}
	r.commands[name] = cmd
	return nil
}

// Commands returns a copy of every registered command keyed by its slash name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// ListCommands renders the command menu sorted by name. With publicOnly set, admin
// and hidden commands are left out.
func (r *Registry) ListCommands(publicOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if publicOnly && (meta.AdminOnly || meta.Hidden) {
			continue
		}
		out = append(out, tele.Command{Text: name[1:], Description: meta.Description})
	}
	return out
}

// RegisterCallback binds handler to the callback unique id key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("%w: callback %q", ErrDuplicate, key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback looks up the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// CallbackNotFound handles presses whose key nothing registered.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}

// InitBotCommands publishes the public commands as the bot's command menu. Failure
// is logged only; the bot works without a menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	ctx := context.Background()
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelError, "commands.publish_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Text
	}
	preview, _ := logger.SummarizeStrings(names, 10)
	logger.LogEvent(ctx, logger.TWire, slog.LevelInfo, "commands.published",
		slog.Int("count", len(list)),
		slog.String("names", preview),
	)
}
