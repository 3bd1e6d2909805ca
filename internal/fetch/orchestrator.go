// Package fetch drives the "fetch articles from N sources" operation:
// validation, dispatch, elapsed-time tracking, and post-fetch reconciliation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"newsdesk/internal/api"
	"newsdesk/internal/articles"
	"newsdesk/internal/store"
)

const (
	minArticles = 1
	maxArticles = 10

	// elapsedTick is how often the informational elapsed-time state is
	// refreshed while a fetch is in flight. A delayed or skipped tick has
	// no effect on correctness.
	elapsedTick = 100 * time.Millisecond
)

var (
	// ErrNoSources is returned before any network call when the settings
	// select no sources.
	ErrNoSources = errors.New("select at least one source before fetching")

	// ErrInFlight is returned when a fetch is started while one is
	// already outstanding. At most one fetch runs per session.
	ErrInFlight = errors.New("a fetch is already in progress")
)

// Outcome summarizes a completed fetch for presentation.
type Outcome struct {
	TotalAdded int           `json:"totalAdded"`
	Duration   time.Duration `json:"duration"`
	Message    string        `json:"message"`
}

// Orchestrator coordinates fetch operations against the reconciliation store.
type Orchestrator struct {
	client *api.Client
	store  *store.Store

	mu       sync.Mutex
	inFlight bool
	stop     chan struct{}

	elapsedMs atomic.Int64
}

func New(client *api.Client, st *store.Store) *Orchestrator {
	return &Orchestrator{client: client, store: st}
}

// InFlight reports whether a fetch is currently outstanding.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Elapsed returns how long the in-flight fetch has been running, refreshed
// on a fixed tick. Zero when no fetch is in flight. Purely informational.
func (o *Orchestrator) Elapsed() time.Duration {
	return time.Duration(o.elapsedMs.Load()) * time.Millisecond
}

// Fetch validates settings, dispatches the fetch, and reconciles the store
// with the server afterwards. The fetch response is treated only as a
// trigger to re-sync: the reloaded attempts list is the canonical result.
// On any failure the prior attempts state is left untouched.
func (o *Orchestrator) Fetch(ctx context.Context, settings articles.Settings) (*Outcome, error) {
	if len(settings.Sources) == 0 {
		return nil, ErrNoSources
	}
	if settings.MaxArticles < minArticles {
		settings.MaxArticles = minArticles
	}
	if settings.MaxArticles > maxArticles {
		settings.MaxArticles = maxArticles
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrInFlight
	}
	o.inFlight = true
	o.stop = make(chan struct{})
	o.mu.Unlock()

	start := time.Now()
	go o.tickElapsed(start)
	defer o.clearInFlight()

	resp, err := o.client.FetchArticles(ctx, api.FetchRequest{
		SourceIDs:     settings.Sources,
		MaxArticles:   settings.MaxArticles,
		SummaryFormat: settings.SummaryFormat,
		SummaryLength: settings.SummaryLength,
	})
	if err != nil {
		return nil, err
	}

	// Canonical state comes from the reload, not the fetch response. A
	// silent reload failure keeps the prior list, which is still correct.
	o.store.LoadFetchAttempts(ctx, store.LoadOptions{Silent: true}) //nolint:errcheck // silent mode logs
	o.store.ShowLatest()

	outcome := &Outcome{
		TotalAdded: resp.TotalAdded,
		Duration:   time.Since(start),
	}
	if resp.TotalAdded > 0 {
		outcome.Message = fmt.Sprintf("%d new article(s) fetched successfully!", resp.TotalAdded)
	} else {
		// Zero new articles is a success: duplicate detection happens
		// server-side and an empty delta is common.
		outcome.Message = "Fetch completed — all articles were duplicates or no new content found."
	}
	return outcome, nil
}

func (o *Orchestrator) tickElapsed(start time.Time) {
	ticker := time.NewTicker(elapsedTick)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.elapsedMs.Store(time.Since(start).Milliseconds())
		}
	}
}

func (o *Orchestrator) clearInFlight() {
	o.mu.Lock()
	defer o.mu.Unlock()
	close(o.stop)
	o.inFlight = false
	o.elapsedMs.Store(0)
}
