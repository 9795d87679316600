package retention

import (
	"context"
	"testing"
	"time"

	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/journal/storage"
)

func seed(t *testing.T, s journal.Storage, now time.Time, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		r := &journal.Record{ID: string(rune('a' + i)), StartTime: now.Add(-age), Outcome: "completed"}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name        string
		cfg         Config
		wantDeleted int64
		wantLeft    int64
	}{
		{"by age", Config{RetentionDays: 30}, 2, 3},
		{"by count", Config{MaxRecords: 2}, 3, 2},
		{"age then count", Config{RetentionDays: 30, MaxRecords: 1}, 4, 1},
		{"disabled", Config{}, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			seed(t, store, now, time.Hour, 2*day, 29*day, 31*day, 90*day)

			p := NewPruner(store, &tt.cfg)
			p.now = func() time.Time { return now }

			deleted, err := p.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDeleted)
			}
			left, _ := store.Count(context.Background(), nil)
			if left != tt.wantLeft {
				t.Errorf("remaining = %d, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	p := NewPruner(storage.NewMemoryStorage(), &Config{RetentionDays: 1, PruneSchedule: "@hourly"})
	s := NewScheduler(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler not running after Start")
	}
	if next := s.NextRun(); next == nil || next.IsZero() {
		t.Errorf("NextRun() = %v", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	s := NewScheduler(NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "every day"}))
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule succeeded")
	}
}

func TestSchedulerEmptySchedule(t *testing.T) {
	s := NewScheduler(NewPruner(storage.NewMemoryStorage(), &Config{}))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Error("scheduler running without a schedule")
	}
}
