package cache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"newsdesk/internal/articles"
)

func attemptAt(id string, ts time.Time) articles.Attempt {
	return articles.Attempt{ID: id, Timestamp: ts, Articles: []articles.Article{{ID: id + "-0"}}}
}

func TestMirror_RoundTrip(t *testing.T) {
	m := NewMirror(NewMemory())
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	m.Save([]articles.Attempt{attemptAt("1", base), attemptAt("2", base.Add(time.Hour))})
	got := m.Load()
	if len(got) != 2 {
		t.Fatalf("Load returned %d attempts, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].ArticleCount() != 1 {
		t.Errorf("articles lost in round trip: %+v", got[0])
	}
}

func TestMirror_SortsAndRenumbers(t *testing.T) {
	m := NewMirror(NewMemory())
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Saved out of order with stale sequence numbers.
	newer := attemptAt("9", base.Add(time.Hour))
	newer.Sequence = 7
	older := attemptAt("4", base)
	older.Sequence = 7
	m.Save([]articles.Attempt{newer, older})

	got := m.Load()
	if len(got) != 2 {
		t.Fatalf("Load returned %d attempts, want 2", len(got))
	}
	if got[0].ID != "4" || got[1].ID != "9" {
		t.Errorf("not sorted by timestamp: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", got[0].Sequence, got[1].Sequence)
	}
}

func TestMirror_MissingSnapshot(t *testing.T) {
	m := NewMirror(NewMemory())
	if got := m.Load(); got != nil {
		t.Errorf("Load on empty store = %v, want nil", got)
	}
}

func TestMirror_CorruptSnapshotSwallowed(t *testing.T) {
	kv := NewMemory()
	if err := kv.Set(StateKey, []byte(`{{{not json`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	m := NewMirror(kv)
	if got := m.Load(); got != nil {
		t.Errorf("Load on corrupt snapshot = %v, want nil", got)
	}
}

func TestMirror_PersistedShape(t *testing.T) {
	kv := NewMemory()
	m := NewMirror(kv)
	m.Save([]articles.Attempt{attemptAt("1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))})

	data, ok, err := kv.Get(StateKey)
	if err != nil || !ok {
		t.Fatalf("Get(%s): ok=%v err=%v", StateKey, ok, err)
	}
	var blob map[string]json.RawMessage
	if err := json.Unmarshal(data, &blob); err != nil {
		t.Fatalf("snapshot is not a JSON object: %v", err)
	}
	if _, ok := blob["fetchAttempts"]; !ok {
		t.Errorf("snapshot missing fetchAttempts key: %s", data)
	}
}

func TestSQLite_GetSetRemove(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, ok, err := db.Get("missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if err := db.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, ok, err := db.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}

	if err := db.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := db.Get("k"); ok {
		t.Error("key still present after Remove")
	}
}
