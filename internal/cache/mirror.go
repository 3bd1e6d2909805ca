package cache

import (
	"encoding/json"
	"log"
	"sort"

	"newsdesk/internal/articles"
)

// Mirror persists the full attempts snapshot under StateKey. Writes are
// whole-snapshot: no incremental diffing.
type Mirror struct {
	kv KV
}

func NewMirror(kv KV) *Mirror {
	return &Mirror{kv: kv}
}

// snapshot matches the persisted {"fetchAttempts": [...]} blob.
type snapshot struct {
	FetchAttempts []articles.Attempt `json:"fetchAttempts"`
}

// Load reads the cached attempts, sorted by timestamp ascending with
// sequence numbers reassigned 1..N. A missing or corrupt snapshot is
// swallowed (logged) and treated as no cache.
func (m *Mirror) Load() []articles.Attempt {
	data, ok, err := m.kv.Get(StateKey)
	if err != nil {
		log.Printf("cache: read snapshot: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("cache: corrupt snapshot ignored: %v", err)
		return nil
	}

	attempts := snap.FetchAttempts
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].Timestamp.Before(attempts[j].Timestamp)
	})
	for i := range attempts {
		attempts[i].Sequence = i + 1
	}
	return attempts
}

// Save writes the full snapshot. Failures are logged, not returned: the
// mirror is advisory and must never fail an operation.
func (m *Mirror) Save(attempts []articles.Attempt) {
	data, err := json.Marshal(snapshot{FetchAttempts: attempts})
	if err != nil {
		log.Printf("cache: encode snapshot: %v", err)
		return
	}
	if err := m.kv.Set(StateKey, data); err != nil {
		log.Printf("cache: write snapshot: %v", err)
	}
}
