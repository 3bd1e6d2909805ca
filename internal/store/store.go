// Package store is the in-memory source of truth for the current session's
// fetch attempts. The server is always authoritative: a reload replaces the
// attempts list wholesale, never merges. Between reloads the list is only
// changed by the narrow deletion and status mutators, and every change is
// mirrored to the local cache.
package store

import (
	"context"
	"errors"
	"log"
	"sync"

	"newsdesk/internal/api"
	"newsdesk/internal/articles"
	"newsdesk/internal/cache"
)

// ErrNotFound is returned by mutators addressing an unknown attempt or article.
var ErrNotFound = errors.New("not found")

// LoadOptions controls a reload of the attempts list.
type LoadOptions struct {
	// Silent marks a background reconciliation: failures are logged here
	// and must not be surfaced to the user by the caller.
	Silent bool
	// Limit caps the number of attempts requested; 0 means server default.
	Limit int
}

type initState int

const (
	uninitialized initState = iota
	initializing
	ready
)

// Store holds the attempts list and its derived views.
type Store struct {
	client *api.Client
	mirror *cache.Mirror

	mu        sync.Mutex
	state     initState
	attempts  []articles.Attempt
	visible   map[string]bool
	flat      []articles.Article
	flatValid bool
}

func New(client *api.Client, mirror *cache.Mirror) *Store {
	return &Store{
		client:  client,
		mirror:  mirror,
		visible: make(map[string]bool),
	}
}

// Initialize runs the one-shot startup protocol: hydrate from the local
// cache synchronously, then reconcile with the server and run any extra
// startup tasks concurrently. Safe to call repeatedly; every call after the
// first is a no-op.
func (s *Store) Initialize(ctx context.Context, extra ...func(context.Context)) {
	s.mu.Lock()
	if s.state != uninitialized {
		s.mu.Unlock()
		return
	}
	s.state = initializing

	if cached := s.mirror.Load(); cached != nil {
		s.attempts = cached
		s.flatValid = false
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.LoadFetchAttempts(ctx, LoadOptions{Silent: true}) //nolint:errcheck // silent mode logs
	}()
	for _, task := range extra {
		wg.Add(1)
		go func(task func(context.Context)) {
			defer wg.Done()
			task(ctx)
		}(task)
	}
	wg.Wait()

	s.mu.Lock()
	s.state = ready
	s.mu.Unlock()
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == ready
}

// LoadFetchAttempts reloads the attempts list from the server and replaces
// the in-memory list with the server's version. On error the prior state is
// retained untouched and the error is returned; in silent mode it is also
// logged here so background callers can discard it.
func (s *Store) LoadFetchAttempts(ctx context.Context, opts LoadOptions) ([]articles.Attempt, error) {
	body, err := s.client.FetchAttempts(ctx, opts.Limit)
	if err != nil {
		if opts.Silent {
			log.Printf("store: background reconciliation failed: %v", err)
		}
		return nil, err
	}

	attempts := articles.NormalizeAttempts(body)

	s.mu.Lock()
	s.attempts = attempts
	s.flatValid = false
	s.mu.Unlock()

	s.mirror.Save(attempts)
	return s.Attempts(), nil
}

// Attempts returns a copy of the current attempts list.
func (s *Store) Attempts() []articles.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]articles.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// AllArticles returns the flattened article view: the concatenation, in
// attempt order, of every attempt's articles. It is derived from the
// attempts list and memoized until the list changes.
func (s *Store) AllArticles() []articles.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flatValid {
		s.flat = nil
		for _, at := range s.attempts {
			s.flat = append(s.flat, at.Articles...)
		}
		s.flatValid = true
	}
	out := make([]articles.Article, len(s.flat))
	copy(out, s.flat)
	return out
}

// Attempt returns the attempt with the given ID.
func (s *Store) Attempt(attemptID string) (articles.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, at := range s.attempts {
		if at.ID == attemptID {
			return at, true
		}
	}
	return articles.Attempt{}, false
}

// SetVisible records per-attempt expansion state for the UI.
func (s *Store) SetVisible(attemptID string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible[attemptID] = visible
}

// IsVisible reports an attempt's expansion state.
func (s *Store) IsVisible(attemptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible[attemptID]
}

// ShowLatest marks only the newest attempt (by timestamp) visible. All
// other attempts retain their prior state.
func (s *Store) ShowLatest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, at := range s.attempts {
		if idx < 0 || at.Timestamp.After(s.attempts[idx].Timestamp) {
			idx = i
		}
	}
	if idx >= 0 {
		s.visible[s.attempts[idx].ID] = true
	}
}

// DeleteAttempt deletes an attempt on the server, removes it locally, and
// then silently reloads so the client picks up the server's renumbering.
// Publish-queue conflicts must be checked by the caller before calling.
func (s *Store) DeleteAttempt(ctx context.Context, attemptID string) error {
	if err := s.client.DeleteAttempt(ctx, attemptID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := make([]articles.Attempt, 0, len(s.attempts))
	for _, at := range s.attempts {
		if at.ID != attemptID {
			kept = append(kept, at)
		}
	}
	s.attempts = kept
	s.flatValid = false
	delete(s.visible, attemptID)
	s.mu.Unlock()

	s.mirror.Save(s.Attempts())

	// The server renumbers the remaining attempts starting at 1; reload so
	// the displayed sequence is the server's, not our stale numbering.
	s.LoadFetchAttempts(ctx, LoadOptions{Silent: true}) //nolint:errcheck // silent mode logs
	return nil
}

// DeleteArticle deletes one article on the server and removes it from its
// attempt locally. Attempts and article lists are replaced, not mutated.
func (s *Store) DeleteArticle(ctx context.Context, attemptID, articleID string) error {
	if err := s.client.DeleteArticle(ctx, attemptID, articleID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]articles.Attempt, len(s.attempts))
	for i, at := range s.attempts {
		next[i] = at
		if at.ID != attemptID {
			continue
		}
		kept := make([]articles.Article, 0, len(at.Articles))
		for _, a := range at.Articles {
			if a.ID == articleID {
				continue
			}
			kept = append(kept, a)
		}
		next[i].Articles = kept
	}
	s.attempts = next
	s.flatValid = false
	s.mirror.Save(next)
	return nil
}

// MarkArticlesReady advances the status of the given canonical article IDs
// to ready-to-publish in the in-memory list. Status only moves forward; an
// already published article is left alone.
func (s *Store) MarkArticlesReady(ids []int64) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]articles.Attempt, len(s.attempts))
	for i, at := range s.attempts {
		next[i] = at
		updated := make([]articles.Article, len(at.Articles))
		for j, a := range at.Articles {
			updated[j] = a
			if want[a.NewsArticleID] && a.Status == articles.StatusFetched {
				updated[j].Status = articles.StatusReadyToPublish
			}
		}
		next[i].Articles = updated
	}
	s.attempts = next
	s.flatValid = false
	s.mirror.Save(next)
}
