// Package handlers maps every inbound turn to exactly one reply using an ordered rule table.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

// Store is the read side of the persistent store used by one-shot handlers.
type Store interface {
	ListHistory(ctx context.Context, userID int64, limit int) ([]store.InteractionRecord, error)
	ClearHistory(ctx context.Context, userID int64) (int64, error)
	GetStats(ctx context.Context, userID int64) (store.UserStats, error)
	ListFavorites(ctx context.Context, userID int64) ([]store.FavoriteRecord, error)
	PopularQueries(ctx context.Context, limit int) ([]store.PopularQuery, error)
	AllUserStats(ctx context.Context) ([]store.UserStats, error)
	KindCounts(ctx context.Context) ([]store.KindCount, error)
}

// Rates returns an exchange-rate snapshot relative to base.
type Rates interface {
	Snapshot(ctx context.Context, base string) (map[string]float64, error)
}

// Gate decides whether a user may transact.
type Gate interface {
	Allow(ctx context.Context, userID int64) bool
	IsAdmin(userID int64) bool
}

// Deps are the collaborators of the Router.
type Deps struct {
	Engine *dialog.Engine
	Store  Store
	Rates  Rates
	Gate   Gate

	// JoinTarget names the required channel in the join prompt.
	JoinTarget string
	// CallTimeout bounds the exchange-rate call; zero means 10s.
	CallTimeout time.Duration
	Clock       func() time.Time
	// RandIntN returns a value in [0, n).
	RandIntN func(n int) int
}

// Result is the outcome of one turn.
type Result struct {
	Reply dialog.Reply
	// Rule names the matched rule for logging.
	Rule string
	// Err is the internal fault behind a generic error reply, if any.
	Err error
}

type handlerFunc func(ctx context.Context, turn dialog.Turn) (dialog.Reply, error)

type rule struct {
	name      string
	commands  []string
	labels    []string
	adminOnly bool
	// labelKeyboard overrides the reply keyboard when the rule was hit via a menu label.
	labelKeyboard dialog.Keyboard
	handle        handlerFunc
}

func (r *rule) matches(command, text string) bool {
	if command != "" {
		for _, c := range r.commands {
			if c == command {
				return true
			}
		}
		return false
	}
	for _, l := range r.labels {
		if l == text {
			return true
		}
	}
	return false
}

// Router evaluates turns in a fixed order: access gate, bypass commands, active
// dialog, command and label table, fallback.
type Router struct {
	deps  Deps
	rules []*rule
}

// NewRouter builds the rule table.
func NewRouter(deps Deps) *Router {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.RandIntN == nil {
		deps.RandIntN = rand.IntN
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = 10 * time.Second
	}
	r := &Router{deps: deps}
	r.rules = r.buildRules()
	return r
}

// ParseCommand returns the lower-cased slash command of text without any @botname
// suffix, or "" when text is not a command.
func ParseCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	head := strings.Fields(text)[0]
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head)
}

// Handle routes one turn. It never fails: internal faults become a generic reply and
// are reported in Result.Err.
func (r *Router) Handle(ctx context.Context, turn dialog.Turn) Result {
	if !r.deps.Gate.Allow(ctx, turn.UserID) {
		return Result{Rule: "gate", Reply: r.joinPrompt()}
	}

	text := strings.TrimSpace(turn.Text)
	command := ParseCommand(text)
	isAdmin := r.deps.Gate.IsAdmin(turn.UserID)

	matched := r.match(command, text)

	// Only admin commands issued by the administrator pre-empt an active dialog;
	// everything else, /start included, is input for the dialog's current step.
	if matched != nil && matched.adminOnly && isAdmin {
		if name, active := r.deps.Engine.Active(turn.UserID); active {
			r.deps.Engine.Cancel(turn.UserID)
			logger.LogEvent(ctx, logger.SVCRouter, slog.LevelDebug, "dialog.bypass",
				slog.Int64("user_id", turn.UserID),
				slog.String("dialog", name),
				slog.String("rule", matched.name),
			)
		}
		return r.run(ctx, matched, command, turn, isAdmin)
	}

	if name, active := r.deps.Engine.Active(turn.UserID); active {
		reply, err := r.deps.Engine.Advance(ctx, turn)
		return r.finish(ctx, "dialog."+name, turn, reply, err)
	}

	if matched != nil {
		return r.run(ctx, matched, command, turn, isAdmin)
	}
	return Result{Rule: "fallback", Reply: dialog.Reply{Text: ui.Unknown}}
}

// Recheck re-runs the access check for the verify button. It never grants access on
// an ambiguous result.
func (r *Router) Recheck(ctx context.Context, userID int64) (dialog.Reply, bool) {
	if r.deps.Gate.Allow(ctx, userID) {
		return dialog.Reply{Text: ui.JoinConfirmed, Keyboard: dialog.KeyboardMain}, true
	}
	return dialog.Reply{Text: ui.JoinMissing}, false
}

func (r *Router) joinPrompt() dialog.Reply {
	return dialog.Reply{Text: fmt.Sprintf(ui.JoinRequired, r.deps.JoinTarget), Keyboard: dialog.KeyboardJoin}
}

func (r *Router) match(command, text string) *rule {
	for _, rl := range r.rules {
		if rl.matches(command, text) {
			return rl
		}
	}
	return nil
}

func (r *Router) run(ctx context.Context, rl *rule, command string, turn dialog.Turn, isAdmin bool) Result {
	if rl.adminOnly && !isAdmin {
		logger.LogEvent(ctx, logger.SVCRouter, slog.LevelInfo, "access.denied",
			slog.Int64("user_id", turn.UserID),
			slog.String("rule", rl.name),
		)
		return Result{Rule: rl.name, Reply: dialog.Reply{Text: ui.AccessDenied}}
	}
	reply, err := rl.handle(ctx, turn)
	if err == nil && command == "" && rl.labelKeyboard != dialog.KeyboardKeep {
		reply.Keyboard = rl.labelKeyboard
	}
	return r.finish(ctx, rl.name, turn, reply, err)
}

func (r *Router) finish(ctx context.Context, name string, turn dialog.Turn, reply dialog.Reply, err error) Result {
	if err != nil {
		logger.LogEvent(ctx, logger.SVCRouter, slog.LevelError, "handler.failed",
			slog.Int64("user_id", turn.UserID),
			slog.String("rule", name),
			slog.String("err", err.Error()),
		)
		return Result{Rule: name, Reply: dialog.Reply{Text: ui.GenericError}, Err: err}
	}
	return Result{Rule: name, Reply: reply}
}
