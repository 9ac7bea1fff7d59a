// Package reports sends a scheduled activity digest to the administrator.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/refbot/core/handlers"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

const digestPopularLimit = 5

// Source provides the aggregates included in a digest.
type Source interface {
	PopularQueries(ctx context.Context, limit int) ([]store.PopularQuery, error)
	KindCounts(ctx context.Context) ([]store.KindCount, error)
}

// Notifier delivers the digest.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}

// Digest runs the admin digest on a cron schedule (UTC).
type Digest struct {
	src      Source
	notifier Notifier
	spec     string
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewDigest validates spec and prepares the scheduler. It does not start it.
func NewDigest(spec string, src Source, notifier Notifier) (*Digest, error) {
	spec = strings.TrimSpace(spec)
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("reports: invalid digest schedule %q: %w", spec, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Digest{
		src:      src,
		notifier: notifier,
		spec:     spec,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start schedules the digest job.
func (d *Digest) Start() error {
	if _, err := d.cron.AddFunc(d.spec, func() {
		if err := d.RunOnce(d.ctx); err != nil {
			logger.SVCReports.Error("digest failed",
				slog.String("event", "digest.send"),
				slog.String("err", err.Error()),
			)
		}
	}); err != nil {
		return fmt.Errorf("reports: schedule digest: %w", err)
	}
	d.cron.Start()
	logger.SVCReports.Info("digest scheduled",
		slog.String("event", "digest.start"),
		slog.String("schedule", d.spec),
	)
	return nil
}

// Stop cancels a running job and waits for it to return.
func (d *Digest) Stop() {
	d.cancel()
	<-d.cron.Stop().Done()
	logger.SVCReports.Info("digest stopped", slog.String("event", "digest.stop"))
}

// RunOnce composes and sends one digest.
func (d *Digest) RunOnce(ctx context.Context) error {
	popular, err := d.src.PopularQueries(ctx, digestPopularLimit)
	if err != nil {
		return fmt.Errorf("reports: popular: %w", err)
	}
	kinds, err := d.src.KindCounts(ctx)
	if err != nil {
		return fmt.Errorf("reports: kinds: %w", err)
	}
	if err := d.notifier.NotifyAdmin(ctx, Compose(popular, kinds)); err != nil {
		return fmt.Errorf("reports: notify: %w", err)
	}
	logger.SVCReports.Info("digest sent",
		slog.String("event", "digest.send"),
		slog.Int("popular", len(popular)),
		slog.Int("kinds", len(kinds)),
	)
	return nil
}

// Compose renders the digest text.
func Compose(popular []store.PopularQuery, kinds []store.KindCount) string {
	var b strings.Builder
	b.WriteString(ui.DigestHeader)
	b.WriteString(handlers.RenderPopular(popular))
	if k := handlers.RenderKindCounts(kinds); k != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(k, "\n"))
	}
	return b.String()
}
