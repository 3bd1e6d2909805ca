// Package queue keeps the local publish queue consistent with the fetch
// workflow. The queue itself is consumed elsewhere; this bridge only guards
// deletions against orphaning queue entries and mirrors newly marked
// articles into it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"newsdesk/internal/api"
	"newsdesk/internal/articles"
	"newsdesk/internal/cache"
)

// ErrNothingToMark is returned when none of the selected articles has a
// canonical server-side ID yet.
var ErrNothingToMark = errors.New("none of the selected articles can be marked yet")

// ConflictError blocks an attempt-level deletion whose articles are still
// in the publish queue.
type ConflictError struct {
	Titles []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot delete attempt: %d article(s) are in the publish queue (%s); delete them individually first",
		len(e.Titles), strings.Join(e.Titles, ", "))
}

// Entry matches the persisted publishQueue element shape consumed by the
// publishing page.
type Entry struct {
	ID   int64     `json:"id"`
	Data EntryData `json:"data"`
}

type EntryData struct {
	Article articles.Article `json:"article"`
}

// Bridge synchronizes the fetch workflow with the publish queue.
type Bridge struct {
	kv     cache.KV
	client *api.Client
}

func New(kv cache.KV, client *api.Client) *Bridge {
	return &Bridge{kv: kv, client: client}
}

// Entries reads the persisted queue. Corruption is swallowed (logged) and
// treated as an empty queue.
func (b *Bridge) Entries() []Entry {
	data, ok, err := b.kv.Get(cache.QueueKey)
	if err != nil {
		log.Printf("queue: read: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("queue: corrupt entries ignored: %v", err)
		return nil
	}
	return entries
}

func (b *Bridge) save(entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("queue: encode: %v", err)
		return
	}
	if err := b.kv.Set(cache.QueueKey, data); err != nil {
		log.Printf("queue: write: %v", err)
	}
}

// IsInPublishQueue reports membership by canonical article ID.
func (b *Bridge) IsInPublishQueue(articleID int64) bool {
	if articleID == 0 {
		return false
	}
	for _, e := range b.Entries() {
		if e.ID == articleID {
			return true
		}
	}
	return false
}

// GuardAttemptDeletion refuses attempt-level deletion when any of the
// attempt's articles is in the publish queue. Called before any DELETE goes
// out; the user must delete the offending articles individually first.
func (b *Bridge) GuardAttemptDeletion(attempt articles.Attempt) error {
	var conflicting []string
	for _, a := range attempt.Articles {
		if b.IsInPublishQueue(a.NewsArticleID) {
			conflicting = append(conflicting, a.Title())
		}
	}
	if len(conflicting) > 0 {
		return &ConflictError{Titles: conflicting}
	}
	return nil
}

// RemoveEntry cascades an article-level deletion into the queue. Removing
// an absent entry is a no-op.
func (b *Bridge) RemoveEntry(articleID int64) {
	entries := b.Entries()
	kept := make([]Entry, 0, len(entries))
	removed := false
	for _, e := range entries {
		if e.ID == articleID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if removed {
		b.save(kept)
	}
}

// MarkReadyForPublish bulk-marks the selected articles on the server and
// mirrors them into the local queue for the publishing page. Mirroring is
// idempotent: entries that already exist by ID are skipped. Articles
// without a canonical ID are not markable and are skipped; the IDs actually
// sent are returned.
func (b *Bridge) MarkReadyForPublish(ctx context.Context, selected []articles.Article) ([]int64, error) {
	var ids []int64
	var markable []articles.Article
	for _, a := range selected {
		if a.IsTemporary || a.NewsArticleID == 0 {
			continue
		}
		ids = append(ids, a.NewsArticleID)
		markable = append(markable, a)
	}
	if len(ids) == 0 {
		return nil, ErrNothingToMark
	}

	if err := b.client.MarkReadyForPublish(ctx, ids); err != nil {
		return nil, err
	}

	entries := b.Entries()
	existing := make(map[int64]bool, len(entries))
	for _, e := range entries {
		existing[e.ID] = true
	}
	added := false
	for _, a := range markable {
		if existing[a.NewsArticleID] {
			continue
		}
		a.Status = articles.StatusReadyToPublish
		entries = append(entries, Entry{ID: a.NewsArticleID, Data: EntryData{Article: a}})
		existing[a.NewsArticleID] = true
		added = true
	}
	if added {
		b.save(entries)
	}
	return ids, nil
}
