package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestStartRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("not a cron spec", time.UTC)
	if err := sched.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := NewCronScheduler("0 10 * * *", time.UTC)
	if err := sched.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// Second Start on a running scheduler is a no-op.
	if err := sched.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("repeated Start returned error: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	// Stop on an already stopped scheduler is a no-op.
	if err := sched.Stop(stopCtx); err != nil {
		t.Fatalf("repeated Stop returned error: %v", err)
	}
}

func TestStartWithoutJob(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("0 10 * * *", nil)
	if err := sched.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with nil job returned error: %v", err)
	}
}
