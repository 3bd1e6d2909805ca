package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"newsdesk/internal/api"
	"newsdesk/internal/articles"
	"newsdesk/internal/cache"
	"newsdesk/internal/store"
)

func newTestOrchestrator(t *testing.T, handler http.Handler) (*Orchestrator, *store.Store, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := api.NewClient(srv.URL, 5*time.Second, nil)
	st := store.New(client, cache.NewMirror(cache.NewMemory()))
	return New(client, st), st, srv.Close
}

// fetchBackend answers the fetch trigger and the attempts reload.
func fetchBackend(totalAdded int, attempts string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/articles/fetchArticles":
			json.NewEncoder(w).Encode(api.FetchResponse{TotalAdded: totalAdded})
		case "/api/articles/fetchAttempts":
			w.Write([]byte(attempts))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestFetch_RequiresSources(t *testing.T) {
	var hit bool
	o, _, done := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer done()

	settings := someSettings()
	settings.Sources = nil
	if _, err := o.Fetch(context.Background(), settings); !errors.Is(err, ErrNoSources) {
		t.Fatalf("err = %v, want ErrNoSources", err)
	}
	if hit {
		t.Error("validation failure reached the network")
	}
}

func TestFetch_ClampsMaxArticles(t *testing.T) {
	var got api.FetchRequest
	o, _, done := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/articles/fetchArticles" {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(api.FetchResponse{})
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer done()

	settings := someSettings()
	settings.MaxArticles = 50
	if _, err := o.Fetch(context.Background(), settings); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.MaxArticles != 10 {
		t.Errorf("MaxArticles sent = %d, want clamp to 10", got.MaxArticles)
	}

	settings.MaxArticles = 0
	if _, err := o.Fetch(context.Background(), settings); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.MaxArticles != 1 {
		t.Errorf("MaxArticles sent = %d, want clamp to 1", got.MaxArticles)
	}
}

func TestFetch_SuccessMessage(t *testing.T) {
	o, st, done := newTestOrchestrator(t, fetchBackend(3, `[
		{"id": 1, "timestamp": "2026-08-01T10:00:00Z", "articles": [{"id": 11, "titleEn": "A"}]}
	]`))
	defer done()

	outcome, err := o.Fetch(context.Background(), someSettings())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.TotalAdded != 3 {
		t.Errorf("TotalAdded = %d", outcome.TotalAdded)
	}
	if outcome.Message != "3 new article(s) fetched successfully!" {
		t.Errorf("Message = %q", outcome.Message)
	}
	if outcome.Duration <= 0 {
		t.Errorf("Duration = %v", outcome.Duration)
	}

	// The reload is the canonical result, and the new attempt is expanded.
	if got := st.Attempts(); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("attempts after fetch = %+v", got)
	}
	if !st.IsVisible("1") {
		t.Error("latest attempt not made visible after fetch")
	}
}

func TestFetch_ZeroAddedIsSuccess(t *testing.T) {
	o, _, done := newTestOrchestrator(t, fetchBackend(0, `[]`))
	defer done()

	outcome, err := o.Fetch(context.Background(), someSettings())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.TotalAdded != 0 {
		t.Errorf("TotalAdded = %d", outcome.TotalAdded)
	}
	if !strings.Contains(outcome.Message, "duplicates or no new content") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestFetch_FailureLeavesStateUntouched(t *testing.T) {
	var failFetch bool
	o, st, done := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/articles/fetchArticles":
			if failFetch {
				http.Error(w, "sources unavailable", http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(api.FetchResponse{TotalAdded: 1})
		case "/api/articles/fetchAttempts":
			w.Write([]byte(`[{"id": 1, "timestamp": "2026-08-01T10:00:00Z", "articles": []}]`))
		}
	}))
	defer done()

	if _, err := o.Fetch(context.Background(), someSettings()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	failFetch = true
	_, err := o.Fetch(context.Background(), someSettings())
	if err == nil {
		t.Fatal("expected fetch failure")
	}
	if err.Error() != "sources unavailable" {
		t.Errorf("err = %q, want the server's message verbatim", err.Error())
	}
	if got := st.Attempts(); len(got) != 1 {
		t.Errorf("attempts changed after failed fetch: %d", len(got))
	}
	if o.InFlight() {
		t.Error("in-flight flag stuck after failure")
	}
}

func TestFetch_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	o, _, done := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/articles/fetchArticles" {
			<-release
			json.NewEncoder(w).Encode(api.FetchResponse{})
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer done()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := o.Fetch(context.Background(), someSettings()); err != nil {
			t.Errorf("first fetch: %v", err)
		}
	}()

	// Wait for the first fetch to take the in-flight slot.
	for !o.InFlight() {
		time.Sleep(time.Millisecond)
	}

	if _, err := o.Fetch(context.Background(), someSettings()); !errors.Is(err, ErrInFlight) {
		t.Errorf("second fetch err = %v, want ErrInFlight", err)
	}

	close(release)
	wg.Wait()

	if o.InFlight() {
		t.Error("in-flight flag stuck after completion")
	}
	if o.Elapsed() != 0 {
		t.Errorf("Elapsed = %v after completion, want 0", o.Elapsed())
	}
}

func TestFetch_ElapsedTicksWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	o, _, done := newTestOrchestrator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/articles/fetchArticles" {
			<-release
			json.NewEncoder(w).Encode(api.FetchResponse{})
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer done()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Fetch(context.Background(), someSettings()) //nolint:errcheck
	}()

	deadline := time.Now().Add(2 * time.Second)
	for o.Elapsed() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Elapsed never advanced while a fetch was in flight")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()
}

func someSettings() articles.Settings {
	return articles.Settings{
		Sources:       []int64{1},
		MaxArticles:   5,
		SummaryFormat: "paragraph",
		SummaryLength: "medium",
	}
}
