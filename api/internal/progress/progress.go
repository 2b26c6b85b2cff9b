// Package progress is a cosmetic progress timer. It climbs toward Cap on a fixed
// tick and never observes the work it is shown next to.
package progress

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultStep     = 5
	DefaultInterval = 200 * time.Millisecond
	Cap             = 95
)

type Option func(*Simulator)

func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithStep(step int) Option {
	return func(s *Simulator) {
		if step > 0 {
			s.step = step
		}
	}
}

type Simulator struct {
	step     int
	interval time.Duration

	mu     sync.Mutex
	value  int
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts ...Option) *Simulator {
	s := &Simulator{step: DefaultStep, interval: DefaultInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start restarts the timer at 0. The channel gets 0 and then every increment up to
// Cap; it is closed once ctx is done or Stop is called, and the value drops to 0.
func (s *Simulator) Start(ctx context.Context) <-chan int {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan int, 1)
	done := make(chan struct{})

	s.mu.Lock()
	s.value = 0
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, out, done)
	return out
}

func (s *Simulator) run(ctx context.Context, out chan<- int, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	defer s.set(0)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	v := 0
	if !emit(ctx, out, v) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if v >= Cap {
				continue
			}
			v = min(v+s.step, Cap)
			s.set(v)
			if !emit(ctx, out, v) {
				return
			}
		}
	}
}

func emit(ctx context.Context, out chan<- int, v int) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop halts a running timer and resets the value to 0. It is a no-op when idle.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.set(0)
}

// Reset is Stop; it exists so callers can say what they mean on completion.
func (s *Simulator) Reset() { s.Stop() }

func (s *Simulator) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Simulator) set(v int) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}
