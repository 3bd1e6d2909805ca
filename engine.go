// Package newsdesk is the client-side engine for a bilingual news curation
// platform. It orchestrates article fetching against the platform's REST
// API, reconciles the session's fetch-attempt state with the server, mirrors
// it into durable local storage for instant startup, and keeps the local
// publish queue consistent with deletions.
package newsdesk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsdesk/internal/api"
	"newsdesk/internal/articles"
	"newsdesk/internal/autofetch"
	"newsdesk/internal/cache"
	"newsdesk/internal/fetch"
	"newsdesk/internal/queue"
	"newsdesk/internal/session"
	"newsdesk/internal/sources"
	"newsdesk/internal/store"
)

// Sentinel errors re-exported for callers.
var (
	ErrNoSources     = fetch.ErrNoSources
	ErrFetchInFlight = fetch.ErrInFlight
	ErrNotFound      = store.ErrNotFound
	ErrNoToken       = session.ErrNoToken
)

// Engine is the public API for the newsdesk client. It wraps the gateway
// client, the reconciliation store, the fetch orchestrator, the auto-fetch
// controller, and the publish-queue bridge.
type Engine struct {
	cfg     *Config
	session *session.Store
	client  *api.Client
	kv      *cache.SQLite
	store   *store.Store
	orch    *fetch.Orchestrator
	auto    *autofetch.Controller
	queue   *queue.Bridge
	poller  *autofetch.Poller
}

// NewEngine creates a newsdesk engine backed by the given configuration.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	kv, err := cache.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	sess := session.New(cfg.Session.TokenPath)
	client := api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.Timeout), sess)
	st := store.New(client, cache.NewMirror(kv))
	auto := autofetch.New(client)

	return &Engine{
		cfg:     cfg,
		session: sess,
		client:  client,
		kv:      kv,
		store:   st,
		orch:    fetch.New(client, st),
		auto:    auto,
		queue:   queue.New(kv, client),
		poller:  autofetch.NewPoller(auto, st, 5*time.Minute),
	}, nil
}

// Initialize runs the one-shot startup protocol: hydrate attempts from the
// local cache, then reconcile with the server and load the auto-fetch state
// concurrently. Idempotent; every call after the first is a no-op.
func (e *Engine) Initialize(ctx context.Context) {
	e.store.Initialize(ctx, e.auto.LoadSilent)
}

// Close releases the local state database.
func (e *Engine) Close() error {
	e.poller.Stop()
	return e.kv.Close()
}

// --- fetch workflow ---

// FetchArticles triggers a fetch from the selected sources and reconciles
// the attempts list afterwards. A second call while one fetch is in flight
// returns ErrFetchInFlight without touching the network.
func (e *Engine) FetchArticles(ctx context.Context, settings FetchSettings) (*FetchOutcome, error) {
	outcome, err := e.orch.Fetch(ctx, articles.Settings{
		Sources:       settings.Sources,
		MaxArticles:   settings.MaxArticles,
		SummaryFormat: settings.SummaryFormat,
		SummaryLength: settings.SummaryLength,
	})
	if err != nil {
		return nil, err
	}
	return &FetchOutcome{
		TotalAdded: outcome.TotalAdded,
		Duration:   outcome.Duration,
		Message:    outcome.Message,
	}, nil
}

// FetchInFlight reports whether a fetch is currently outstanding.
func (e *Engine) FetchInFlight() bool { return e.orch.InFlight() }

// FetchElapsed returns how long the in-flight fetch has been running.
func (e *Engine) FetchElapsed() time.Duration { return e.orch.Elapsed() }

// RefreshAttempts reloads the attempts list from the server, replacing the
// local view entirely.
func (e *Engine) RefreshAttempts(ctx context.Context, limit int) ([]FetchAttempt, error) {
	if _, err := e.store.LoadFetchAttempts(ctx, store.LoadOptions{Limit: limit}); err != nil {
		return nil, err
	}
	return e.Attempts(), nil
}

// Attempts returns the current attempts list with queue membership and
// visibility attached.
func (e *Engine) Attempts() []FetchAttempt {
	internal := e.store.Attempts()
	out := make([]FetchAttempt, len(internal))
	for i, at := range internal {
		out[i] = e.attemptFromInternal(at)
	}
	return out
}

// AllArticles returns the flattened article view across all attempts, in
// attempt order.
func (e *Engine) AllArticles() []Article {
	internal := e.store.AllArticles()
	out := make([]Article, len(internal))
	for i, a := range internal {
		out[i] = e.articleFromInternal(a)
	}
	return out
}

// DeleteAttempt deletes a whole attempt and its articles. Refused outright,
// before any network call, when any of the attempt's articles is still in
// the publish queue.
func (e *Engine) DeleteAttempt(ctx context.Context, attemptID string) error {
	attempt, ok := e.store.Attempt(attemptID)
	if !ok {
		// The local view may be stale; reconcile once before giving up.
		if _, err := e.store.LoadFetchAttempts(ctx, store.LoadOptions{}); err != nil {
			return err
		}
		if attempt, ok = e.store.Attempt(attemptID); !ok {
			return ErrNotFound
		}
	}
	if err := e.queue.GuardAttemptDeletion(attempt); err != nil {
		return err
	}
	return e.store.DeleteAttempt(ctx, attemptID)
}

// ArticleInQueue reports whether the given article has a publish-queue
// entry, so callers can confirm the cascade before deleting.
func (e *Engine) ArticleInQueue(attemptID, articleID string) bool {
	attempt, ok := e.store.Attempt(attemptID)
	if !ok {
		return false
	}
	for _, a := range attempt.Articles {
		if a.ID == articleID {
			return e.queue.IsInPublishQueue(a.NewsArticleID)
		}
	}
	return false
}

// DeleteArticle deletes one article from an attempt. When the article has a
// publish-queue entry the entry is removed too (cascade); the return value
// reports whether that happened.
func (e *Engine) DeleteArticle(ctx context.Context, attemptID, articleID string) (bool, error) {
	var canonical int64
	if attempt, ok := e.store.Attempt(attemptID); ok {
		for _, a := range attempt.Articles {
			if a.ID == articleID {
				canonical = a.NewsArticleID
				break
			}
		}
	}
	inQueue := e.queue.IsInPublishQueue(canonical)

	if err := e.store.DeleteArticle(ctx, attemptID, articleID); err != nil {
		return false, err
	}
	if inQueue {
		e.queue.RemoveEntry(canonical)
	}
	return inQueue, nil
}

// PushToPublish marks the selected articles (by ID, across any attempts) as
// ready-to-publish on the server and mirrors them, deduplicated, into the
// local publish queue. Returns how many articles were marked.
func (e *Engine) PushToPublish(ctx context.Context, articleIDs []string) (int, error) {
	want := make(map[string]bool, len(articleIDs))
	for _, id := range articleIDs {
		want[id] = true
	}

	var selected []articles.Article
	for _, a := range e.store.AllArticles() {
		if want[a.ID] {
			selected = append(selected, a)
		}
	}
	if len(selected) == 0 {
		return 0, errors.New("no matching articles selected")
	}

	marked, err := e.queue.MarkReadyForPublish(ctx, selected)
	if err != nil {
		return 0, err
	}
	e.store.MarkArticlesReady(marked)
	return len(marked), nil
}

// --- auto-fetch ---

// AutoFetch returns the current auto-fetch state.
func (e *Engine) AutoFetch() AutoFetchState {
	return autoFetchFromInternal(e.auto.State())
}

// LoadAutoFetch refreshes the auto-fetch state from the server.
func (e *Engine) LoadAutoFetch(ctx context.Context) (AutoFetchState, error) {
	err := e.auto.Load(ctx)
	return autoFetchFromInternal(e.auto.State()), err
}

// ToggleAutoFetch optimistically flips the auto-fetch flag and rolls back
// if the server rejects it. A 403 hides the control for the session.
func (e *Engine) ToggleAutoFetch(ctx context.Context) (AutoFetchState, error) {
	state, err := e.auto.Toggle(ctx)
	return autoFetchFromInternal(state), err
}

// StartPolling begins periodic background reconciliation on the server's
// auto-fetch interval. StopPolling (or Close) ends it.
func (e *Engine) StartPolling(ctx context.Context) { e.poller.Start(ctx) }

// StopPolling stops background reconciliation.
func (e *Engine) StopPolling() { e.poller.Stop() }

// --- sources ---

// Sources returns the source catalog, with the configured YAML override
// applied when present.
func (e *Engine) Sources() []Source {
	list := sources.All()
	if e.cfg.Catalog.Path != "" {
		if merged, err := sources.LoadCatalog(e.cfg.Catalog.Path); err == nil {
			list = merged
		}
	}
	out := make([]Source, len(list))
	for i, s := range list {
		out[i] = Source{ID: s.ID, NameEn: s.NameEn, NameZh: s.NameZh, FeedURL: s.FeedURL}
	}
	return out
}

// PreviewSource fetches a source's public feed directly and returns current
// headlines. The source may be named by catalog ID, English or Chinese name.
func (e *Engine) PreviewSource(ctx context.Context, nameOrID string, limit int) ([]Headline, error) {
	var src sources.Source
	var ok bool
	if src, ok = sources.ByName(nameOrID); !ok {
		var id int64
		if _, err := fmt.Sscanf(nameOrID, "%d", &id); err == nil {
			src, ok = sources.ByID(id)
		}
	}
	if !ok {
		return nil, fmt.Errorf("unknown source %q", nameOrID)
	}

	headlines, err := sources.Preview(ctx, src, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Headline, len(headlines))
	for i, h := range headlines {
		out[i] = Headline{Title: h.Title, Link: h.Link, Published: h.Published}
	}
	return out, nil
}

// --- session ---

// SaveSession stores a bearer token for subsequent calls.
func (e *Engine) SaveSession(token string) error { return e.session.Save(token) }

// ClearSession removes the saved token.
func (e *Engine) ClearSession() error { return e.session.Clear() }

// Session describes the saved token. Returns ErrNoToken when none exists.
func (e *Engine) Session() (*SessionInfo, error) {
	claims, err := e.session.Inspect()
	if err != nil {
		return nil, err
	}
	info := &SessionInfo{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt,
	}
	if claims.ExpiresAt != nil {
		info.Expired = claims.ExpiresAt.Before(time.Now())
	}
	return info, nil
}

// SessionExpired reports whether the saved token has an expiry in the past.
func (e *Engine) SessionExpired() bool { return e.session.Expired() }

// --- internal type conversion helpers ---

func (e *Engine) articleFromInternal(a articles.Article) Article {
	return Article{
		ID:            a.ID,
		NewsArticleID: a.NewsArticleID,
		IsTemporary:   a.IsTemporary,
		TitleEn:       a.TitleEn,
		TitleZh:       a.TitleZh,
		SummaryEn:     a.SummaryEn,
		SummaryZh:     a.SummaryZh,
		FullContentEn: a.FullContentEn,
		FullContentZh: a.FullContentZh,
		SourceID:      a.SourceID,
		SourceName:    a.SourceName,
		URL:           a.URL,
		Status:        Status(a.Status),
		AttemptID:     a.AttemptID,
		InQueue:       e.queue.IsInPublishQueue(a.NewsArticleID),
	}
}

func (e *Engine) attemptFromInternal(at articles.Attempt) FetchAttempt {
	out := FetchAttempt{
		ID:        at.ID,
		Sequence:  at.Sequence,
		Timestamp: at.Timestamp,
		Settings: FetchSettings{
			Sources:       at.Settings.Sources,
			MaxArticles:   at.Settings.MaxArticles,
			SummaryFormat: at.Settings.SummaryFormat,
			SummaryLength: at.Settings.SummaryLength,
		},
		ArticleCount: at.ArticleCount(),
		Visible:      e.store.IsVisible(at.ID),
	}
	out.Articles = make([]Article, len(at.Articles))
	for i, a := range at.Articles {
		out.Articles[i] = e.articleFromInternal(a)
	}
	return out
}

func autoFetchFromInternal(s autofetch.State) AutoFetchState {
	return AutoFetchState{Enabled: s.Enabled, Interval: s.Interval, Visible: s.Visible}
}
