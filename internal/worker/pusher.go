package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ledgersync "timeledger/internal/sync"
)

// PusherConfig holds configuration for the periodic pusher
type PusherConfig struct {
	// Interval is how often the full ledger is re-pushed (default: 15m)
	Interval time.Duration
}

// DefaultPusherConfig returns sensible defaults
func DefaultPusherConfig() PusherConfig {
	return PusherConfig{Interval: 15 * time.Minute}
}

// PushTrigger runs one push batch.
type PushTrigger interface {
	Push(ctx context.Context) ledgersync.PushReport
}

// Pusher re-pushes the whole ledger on a timer. This is the catch-up path
// for changes whose messages were lost while the broker or worker was down.
type Pusher struct {
	trigger PushTrigger
	config  PusherConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPusher creates a new periodic pusher
func NewPusher(trigger PushTrigger, config PusherConfig) *Pusher {
	if config.Interval <= 0 {
		config.Interval = DefaultPusherConfig().Interval
	}
	return &Pusher{
		trigger: trigger,
		config:  config,
	}
}

// Start begins the push loop. Returns an error if already running.
func (p *Pusher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pusher is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Periodic pusher started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the pusher and waits for completion.
func (p *Pusher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Periodic pusher stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Periodic pusher stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the pusher is currently running
func (p *Pusher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pusher) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Catch up immediately on startup
	p.runPush(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runPush(ctx)
		}
	}
}

func (p *Pusher) runPush(ctx context.Context) {
	report := p.trigger.Push(ctx)
	if !report.Success {
		slog.WarnContext(ctx, "Periodic push finished with errors",
			"synced", report.Synced,
			"errors", report.Errors)
		return
	}
	slog.DebugContext(ctx, "Periodic push completed", "synced", report.Synced)
}
