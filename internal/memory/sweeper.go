package memory

import (
	"context"
	"fmt"
	"log"
	"sync"

	rcron "github.com/robfig/cron/v3"
)

// DefaultSweepSchedule prunes faded memories every five minutes, which is
// finer than the shortest decay window.
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically prunes expired memories so that players nobody recalls
// still get forgotten on time.
type Sweeper struct {
	store    *Store
	schedule string

	mu     sync.Mutex
	cron   *rcron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper returns a sweeper for store. An empty schedule uses
// DefaultSweepSchedule.
func NewSweeper(store *Store, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{store: store, schedule: schedule}
}

// Start registers the prune job and starts the scheduler. Calling Start on a
// running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := rcron.New()
	if _, err := c.AddFunc(s.schedule, s.Sweep); err != nil {
		return fmt.Errorf("register sweep %q: %w", s.schedule, err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	c.Start()
	log.Printf("[cron] memory sweeper started (%s)", s.schedule)
	return nil
}

// Sweep runs one prune pass.
func (s *Sweeper) Sweep() {
	ctx := s.context()
	n, err := s.store.Prune(ctx)
	if err != nil {
		log.Printf("[cron] memory sweep error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[cron] memory sweep forgot %d players", n)
	}
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
	log.Printf("[cron] memory sweeper stopped")
}

func (s *Sweeper) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
