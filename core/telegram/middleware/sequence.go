package middleware

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/m3rciful/refbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// DefaultSequencerBacklog caps queued updates per user.
const DefaultSequencerBacklog = 32

// Sequencer hands updates to one worker per user. Updates of the same user run
// in arrival order; different users run in parallel. A worker exits as soon as
// its queue drains.
type Sequencer struct {
	mu      sync.Mutex
	queues  map[int64]*userQueue
	backlog int
	closed  bool
	wg      sync.WaitGroup
}

type userQueue struct {
	tasks []func()
}

// NewSequencer creates a sequencer; backlog <= 0 selects DefaultSequencerBacklog.
func NewSequencer(backlog int) *Sequencer {
	if backlog <= 0 {
		backlog = DefaultSequencerBacklog
	}
	return &Sequencer{queues: make(map[int64]*userQueue), backlog: backlog}
}

// Middleware queues the rest of the chain on the sender's worker and returns immediately.
// Updates without a sender run inline.
func (s *Sequencer) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		key := sequenceKey(c)
		if key == 0 {
			return next(c)
		}
		ok := s.Submit(key, func() {
			if err := next(c); err != nil {
				logger.TG.Warn("handler failed",
					slog.String("event", "tg.handler_error"),
					slog.Int64("user_id", key),
					slog.Any("err", err),
				)
			}
		})
		if !ok {
			logger.TG.Warn("update dropped",
				slog.String("event", "tg.sequence_drop"),
				slog.Int64("user_id", key),
				slog.Int("update_id", c.Update().ID),
			)
		}
		return nil
	}
}

// Submit queues fn for key. It reports false when the sequencer is closed or the
// user's backlog is full.
func (s *Sequencer) Submit(key int64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	q, ok := s.queues[key]
	if !ok {
		q = &userQueue{}
		s.queues[key] = q
		s.wg.Add(1)
		go s.drain(key, q)
	}
	if len(q.tasks) >= s.backlog {
		return false
	}
	q.tasks = append(q.tasks, fn)
	return true
}

// Workers reports how many user workers are alive.
func (s *Sequencer) Workers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Close rejects new work and waits for queued updates to finish.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sequencer) drain(key int64, q *userQueue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.tasks) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		s.mu.Unlock()
		runTask(key, fn)
	}
}

func runTask(key int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.TG.Error("panic recovered",
				slog.String("event", "tg.panic"),
				slog.Int64("user_id", key),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}

func sequenceKey(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	return 0
}
