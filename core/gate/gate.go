// Package gate decides whether a user may use the bot at all.
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/refbot/core/logger"
)

const defaultTimeout = 5 * time.Second

// Checker verifies membership in the required group.
type Checker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, userID int64) (bool, error)

// IsMember calls f.
func (f CheckerFunc) IsMember(ctx context.Context, userID int64) (bool, error) {
	return f(ctx, userID)
}

// Gate lets the administrator through unconditionally and everybody else only after a
// successful membership check. Errors and timeouts deny.
type Gate struct {
	checker Checker
	adminID int64
	timeout time.Duration
}

// New builds a Gate. A nil checker disables membership checks.
func New(checker Checker, adminID int64, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gate{checker: checker, adminID: adminID, timeout: timeout}
}

// Enabled reports whether a membership check is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.checker != nil
}

// IsAdmin reports whether userID is the administrator.
func (g *Gate) IsAdmin(userID int64) bool {
	return g != nil && g.adminID != 0 && userID == g.adminID
}

// Allow reports whether userID may proceed.
func (g *Gate) Allow(ctx context.Context, userID int64) bool {
	if g.IsAdmin(userID) || !g.Enabled() {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	ok, err := g.checker.IsMember(checkCtx, userID)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCGate, slog.LevelWarn, "gate.check",
			slog.Int64("user_id", userID),
			slog.String("status", "error"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return false
	}
	logger.LogEvent(ctx, logger.SVCGate, slog.LevelDebug, "gate.check",
		slog.Int64("user_id", userID),
		slog.Bool("member", ok),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return ok
}
