// Package sender runs outbound Bot API calls off the update goroutine, keeping the
// per-chat order and retrying transient failures.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/refbot/core/logger"
)

var (
	// ErrQueueClosed is returned by Enqueue once Close has been called.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the lane owning the key has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tune the dispatcher. Zero values select the defaults.
type Options struct {
	// QueueSize is the total buffered capacity, split evenly across workers.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher owns one lane per worker. A key (the chat id) always maps to the same
// lane, so calls for one chat run in the order they were enqueued.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failed atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	perLane := max(opts.QueueSize/opts.Workers, 16)

	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	d.wg.Add(len(d.lanes))
	for i := range d.lanes {
		lane := make(chan job, perLane)
		d.lanes[i] = lane
		go func() {
			defer d.wg.Done()
			for j := range lane {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue hands run to the lane owning key without waiting for it. run may be called
// more than once when the call fails transiently.
func (d *Dispatcher) Enqueue(ctx context.Context, key int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lanes[uint64(key)%uint64(len(d.lanes))] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns how many jobs failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close rejects new jobs and waits until the queued ones have run. It is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	start := time.Now()
	deadline := start.Add(d.opts.MaxDuration)
	base := []slog.Attr{slog.String("action", j.action), slog.String("endpoint", j.endpoint)}
	logger.LogEvent(j.ctx, logger.TGSender, slog.LevelDebug, "send.start", base...)

	for attempt := 1; ; attempt++ {
		err := j.run()
		if err == nil {
			level := slog.LevelDebug
			if attempt > 1 {
				level = slog.LevelInfo
			}
			logger.LogEvent(j.ctx, logger.TGSender, level, "send.ok", append(base,
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", time.Since(start)),
			)...)
			return
		}

		kind := classifyError(err)
		wait, retry := d.retryDelay(err, attempt)
		if retry && time.Until(deadline) > wait && sleep(j.ctx, wait) {
			logger.LogEvent(j.ctx, logger.TGSender, slog.LevelDebug, "send.retry", append(base,
				slog.Int("attempt", attempt),
				slog.Duration("delay", wait),
				slog.String("err_kind", kind),
			)...)
			continue
		}

		d.failed.Add(1)
		logger.LogEvent(j.ctx, logger.TGSender, slog.LevelError, "send.fail", append(base,
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("err_kind", kind),
			slog.Int("attempts", attempt),
			slog.Duration("elapsed", time.Since(start)),
		)...)
		return
	}
}

// retryDelay decides whether attempt may be followed by another one and after how long.
// Flood control errors wait exactly as long as Telegram asks.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt > d.opts.MaxRetries {
		return 0, false
	}
	if after, ok := floodWait(err); ok {
		return after, true
	}
	if !transient(err) {
		return 0, false
	}
	return d.opts.RetryBackoff * time.Duration(attempt), true
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
