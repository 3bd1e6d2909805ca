package autofetch

import (
	"context"
	"log"
	"sync"
	"time"

	"newsdesk/internal/store"
)

// Poller periodically reconciles the attempts list while server-side
// auto-fetch is running, so a long-lived client sees articles the server
// fetched on its own schedule. It has an explicit start/stop lifecycle and
// never closes over stale interval state: the interval is re-read from the
// controller on every cycle.
type Poller struct {
	ctrl  *Controller
	store *store.Store

	// fallback is used when the server has not reported an interval yet.
	fallback time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

func NewPoller(ctrl *Controller, st *store.Store, fallback time.Duration) *Poller {
	if fallback <= 0 {
		fallback = 5 * time.Minute
	}
	return &Poller{ctrl: ctrl, store: st, fallback: fallback}
}

// Start launches the poll loop. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	log.Printf("autofetch: poller started")
}

// Stop signals the poll loop to exit. Stopping a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.done)
	p.running = false
	log.Printf("autofetch: poller stopped")
}

func (p *Poller) interval() time.Duration {
	if iv := p.ctrl.State().Interval; iv > 0 {
		return iv
	}
	return p.fallback
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	p.poll(ctx)
	for {
		timer := time.NewTimer(p.interval())
		select {
		case <-done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.poll(ctx)
		}
	}
}

// poll refreshes the auto-fetch state and, when enabled, silently
// reconciles the attempts list.
func (p *Poller) poll(ctx context.Context) {
	p.ctrl.LoadSilent(ctx)
	state := p.ctrl.State()
	if !state.Visible || !state.Enabled {
		return
	}
	if _, err := p.store.LoadFetchAttempts(ctx, store.LoadOptions{Silent: true}); err == nil {
		log.Printf("autofetch: attempts reconciled")
	}
}
