package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepReminders(context.Context) (int, error) {
	s.calls.Add(1)
	return 3, s.err
}

func TestRunOnceInvokesSweeper(t *testing.T) {
	sweeper := &countingSweeper{}
	r, err := NewReminders("@every 24h", sweeper)
	if err != nil {
		t.Fatalf("new reminders: %v", err)
	}
	r.RunOnce()
	sweeper.err = errors.New("db down")
	r.RunOnce()
	if got := sweeper.calls.Load(); got != 2 {
		t.Fatalf("expected two sweeps, got %d", got)
	}
}

func TestNewRemindersRejectsBadSchedule(t *testing.T) {
	if _, err := NewReminders("every day please", &countingSweeper{}); err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestStartStop(t *testing.T) {
	r, err := NewReminders("@every 1h", &countingSweeper{})
	if err != nil {
		t.Fatalf("new reminders: %v", err)
	}
	r.Start()
	r.Stop(context.Background())
}
