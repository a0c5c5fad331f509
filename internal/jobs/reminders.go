package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs one reminder pass and reports how many notifications it sent.
type Sweeper interface {
	SweepReminders(ctx context.Context) (int, error)
}

// Reminders schedules the reminder sweep on a cron schedule.
type Reminders struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

// NewReminders registers the sweep under schedule (standard 5-field expression or a descriptor
// such as "@every 24h").
func NewReminders(schedule string, sweeper Sweeper) (*Reminders, error) {
	r := &Reminders{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper: sweeper,
		timeout: 10 * time.Minute,
	}
	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", schedule, err)
	}
	return r, nil
}

// RunOnce performs a single sweep with its own timeout.
func (r *Reminders) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	started := time.Now()
	sent, err := r.sweeper.SweepReminders(ctx)
	if err != nil {
		log.Printf("[JOBS] reminder sweep failed after %d notifications: %v", sent, err)
		return
	}
	log.Printf("[JOBS] reminder sweep sent=%d took=%s", sent, time.Since(started))
}

func (r *Reminders) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (r *Reminders) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
