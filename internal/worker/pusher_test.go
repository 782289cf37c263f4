package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	ledgersync "timeledger/internal/sync"
)

type fakeTrigger struct {
	mu     sync.Mutex
	calls  int
	report ledgersync.PushReport
	pushed chan struct{}
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{
		report: ledgersync.PushReport{Success: true},
		pushed: make(chan struct{}, 8),
	}
}

func (f *fakeTrigger) Push(context.Context) ledgersync.PushReport {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case f.pushed <- struct{}{}:
	default:
	}
	return f.report
}

func (f *fakeTrigger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDefaultPusherConfig(t *testing.T) {
	config := DefaultPusherConfig()
	if config.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", config.Interval)
	}
}

func TestNewPusher_AppliesDefaults(t *testing.T) {
	p := NewPusher(newFakeTrigger(), PusherConfig{})
	if p.config.Interval != 15*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", p.config.Interval)
	}
}

func TestPusher_IsRunning(t *testing.T) {
	p := NewPusher(newFakeTrigger(), DefaultPusherConfig())
	if p.IsRunning() {
		t.Error("pusher should not be running before Start")
	}
}

func TestPusher_StartTwice(t *testing.T) {
	p := NewPusher(newFakeTrigger(), DefaultPusherConfig())

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}
}

func TestPusher_StopNotRunning(t *testing.T) {
	p := NewPusher(newFakeTrigger(), DefaultPusherConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop on an idle pusher should be a no-op, got %v", err)
	}
}

func TestPusher_StartStop(t *testing.T) {
	ctx := context.Background()
	trigger := newFakeTrigger()
	p := NewPusher(trigger, PusherConfig{Interval: time.Hour})

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Error("pusher should report running after Start")
	}

	// The loop pushes once at startup before waiting on the ticker
	select {
	case <-trigger.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the catch-up push")
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("pusher should not report running after Stop")
	}
	if trigger.callCount() == 0 {
		t.Error("trigger was never invoked")
	}
}

func TestPusher_StopTimeout(t *testing.T) {
	p := NewPusher(newFakeTrigger(), DefaultPusherConfig())

	p.mu.Lock()
	p.running = true
	p.stopCh = make(chan struct{}, 1)
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// doneCh never closes because no loop is draining stopCh
	if err := p.Stop(ctx); err == nil {
		t.Error("Stop should give up when the loop never acknowledges")
	}
}
