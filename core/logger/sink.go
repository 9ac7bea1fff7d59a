package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: sink closed")

type sinkItem struct {
	line []byte
	ack  chan error
}

// sink fans lines out to its outputs from a single goroutine. Outputs are flushed
// whenever the queue runs empty and on every explicit Flush.
type sink struct {
	queue chan sinkItem
	done  chan struct{}
	outs  []*bufio.Writer

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newSink(outs []io.Writer) *sink {
	s := &sink{
		queue: make(chan sinkItem, 256),
		done:  make(chan struct{}),
	}
	for _, w := range outs {
		if w != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(w, 32*1024))
		}
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	for item := range s.queue {
		for _, out := range s.outs {
			if len(item.line) > 0 {
				if _, err := out.Write(item.line); err != nil {
					s.fail(err)
				}
			}
		}
		if item.ack != nil || len(s.queue) == 0 {
			s.flushOuts()
		}
		if item.ack != nil {
			item.ack <- s.lastErr()
		}
	}
	s.flushOuts()
}

func (s *sink) flushOuts() {
	for _, out := range s.outs {
		if err := out.Flush(); err != nil {
			s.fail(err)
		}
	}
}

// Write queues a copy of line. It blocks while the queue is full rather than drop output.
func (s *sink) Write(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSinkClosed
	}
	s.queue <- sinkItem{line: append([]byte(nil), line...)}
	return s.lastErr()
}

// Flush waits until every line queued before the call reached the outputs.
func (s *sink) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return s.lastErr()
	}
	ack := make(chan error, 1)
	s.queue <- sinkItem{ack: ack}
	s.mu.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (s *sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return s.lastErr()
}

func (s *sink) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *sink) lastErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
