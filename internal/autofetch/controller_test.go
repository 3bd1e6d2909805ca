package autofetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"newsdesk/internal/api"
)

func newTestController(t *testing.T, handler http.Handler) (*Controller, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	return New(api.NewClient(srv.URL, time.Second, nil)), srv.Close
}

func TestController_Load(t *testing.T) {
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"enabled": true, "intervalSeconds": 900}`))
	}))
	defer done()

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	state := c.State()
	if !state.Enabled {
		t.Error("Enabled = false")
	}
	if state.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", state.Interval)
	}
	if !state.Visible {
		t.Error("Visible = false without a 403")
	}
}

func TestController_LoadForbiddenHidesControl(t *testing.T) {
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "consultant permission required", http.StatusForbidden)
	}))
	defer done()

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected 403 error")
	}
	if c.State().Visible {
		t.Error("control still visible after 403")
	}
}

func TestController_LoadOtherFailureKeepsState(t *testing.T) {
	var fail atomic.Bool
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "upstream down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"enabled": true, "intervalSeconds": 600}`))
	}))
	defer done()

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	fail.Store(true)
	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	state := c.State()
	if !state.Enabled || !state.Visible {
		t.Errorf("state after non-403 failure = %+v, want untouched", state)
	}
}

func TestController_ToggleOnAndOff(t *testing.T) {
	var lastPath atomic.Value
	lastPath.Store("")
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath.Store(r.URL.Path)
		w.Write([]byte(`{"intervalSeconds": 600}`))
	}))
	defer done()

	state, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle on: %v", err)
	}
	if !state.Enabled {
		t.Error("Enabled = false after toggle on")
	}
	if state.Interval != 10*time.Minute {
		t.Errorf("Interval = %v, want server's 10m", state.Interval)
	}
	if got := lastPath.Load().(string); got != "/api/autofetch/enable" {
		t.Errorf("path = %q", got)
	}

	state, err = c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if state.Enabled {
		t.Error("Enabled = true after toggle off")
	}
	if got := lastPath.Load().(string); got != "/api/autofetch/disable" {
		t.Errorf("path = %q", got)
	}
}

func TestController_ToggleRollsBackOnFailure(t *testing.T) {
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scheduler unavailable", http.StatusServiceUnavailable)
	}))
	defer done()

	state, err := c.Toggle(context.Background())
	if err == nil {
		t.Fatal("expected toggle failure")
	}
	if state.Enabled {
		t.Error("optimistic flip not rolled back")
	}
	if !state.Visible {
		t.Error("non-403 failure hid the control")
	}
}

func TestController_ToggleForbiddenHidesControl(t *testing.T) {
	c, done := newTestController(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "consultant permission required", http.StatusForbidden)
	}))
	defer done()

	state, err := c.Toggle(context.Background())
	if err == nil {
		t.Fatal("expected 403 error")
	}
	if state.Enabled {
		t.Error("optimistic flip not rolled back on 403")
	}
	if state.Visible {
		t.Error("control still visible after 403")
	}
}

func TestOptimistic(t *testing.T) {
	flag := false
	err := optimistic(&flag, true, func() error { return nil })
	if err != nil || !flag {
		t.Errorf("success case: err=%v flag=%v", err, flag)
	}

	sawApplied := false
	err = optimistic(&flag, false, func() error {
		sawApplied = !flag
		return context.Canceled
	})
	if err == nil {
		t.Fatal("expected error passthrough")
	}
	if !sawApplied {
		t.Error("next value not applied before the call")
	}
	if !flag {
		t.Error("prior value not restored after failure")
	}
}
