package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type testResult struct {
	err error
}

func (r *testResult) Err() error {
	return r.err
}

type testJob struct {
	duration time.Duration
	fail     bool
	executed *int32
}

func (j *testJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &testResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &testResult{err: errors.New("job failed")}
	}
	return &testResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	p := NewPool(context.Background(), 4)
	p.Start()

	var executed int32
	const n = 20
	for i := 0; i < n; i++ {
		p.Submit(&testJob{executed: &executed})
	}
	results := p.Wait()

	if got := atomic.LoadInt32(&executed); got != n {
		t.Errorf("executed %d jobs, want %d", got, n)
	}
	if len(results) != n {
		t.Errorf("got %d results, want %d", len(results), n)
	}
	for _, r := range results {
		if r.Err() != nil {
			t.Errorf("unexpected job error: %v", r.Err())
		}
	}
}

func TestPool_SubmitNeverBlocksOnFullBuffers(t *testing.T) {
	p := NewPool(context.Background(), 4)
	p.Start()

	// Far more jobs than the job and result buffers hold combined. The
	// collector must drain results while submission is still going, or
	// the workers back up and Submit wedges.
	var executed int32
	const n = 50
	done := make(chan []Result, 1)
	go func() {
		for i := 0; i < n; i++ {
			p.Submit(&testJob{executed: &executed})
		}
		done <- p.Wait()
	}()

	select {
	case results := <-done:
		if got := atomic.LoadInt32(&executed); got != n {
			t.Errorf("executed %d jobs, want %d", got, n)
		}
		if len(results) != n {
			t.Errorf("got %d results, want %d", len(results), n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("submit/wait deadlocked; %d of %d jobs executed", atomic.LoadInt32(&executed), n)
	}
}

func TestPool_PropagatesJobErrors(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()

	p.Submit(&testJob{})
	p.Submit(&testJob{fail: true})
	results := p.Wait()

	failures := 0
	for _, r := range results {
		if r.Err() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("got %d failures, want 1", failures)
	}
}

func TestPool_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 2)
	p.Start()

	for i := 0; i < 4; i++ {
		p.Submit(&testJob{duration: 5 * time.Second})
	}
	cancel()
	p.Shutdown()
	// Shutdown returning at all is the assertion: slow jobs observed
	// the cancellation instead of running out their duration.
}

func TestPool_ZeroWorkers(t *testing.T) {
	p := NewPool(context.Background(), 0)
	p.Start()

	var executed int32
	p.Submit(&testJob{executed: &executed})
	p.Wait()

	if executed != 1 {
		t.Error("pool with clamped worker count did not run the job")
	}
}

func TestScheduler_RunsOnStartupAndInterval(t *testing.T) {
	var runs int32
	s := NewScheduler(nil)
	s.Add(Task{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Run: func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	got := atomic.LoadInt32(&runs)
	if got < 2 {
		t.Errorf("task ran %d times, want at least 2 (startup + interval)", got)
	}
}

func TestScheduler_IgnoresZeroInterval(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(Task{Name: "never", Interval: 0, Run: func(context.Context) error {
		t.Error("zero-interval task ran")
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Start(ctx)
}
