package newsdesk

import "time"

// Status tracks an article through the curation pipeline. Transitions only
// move forward: fetched -> ready-to-publish -> published. The client never
// reverses a transition; undoing ready-to-publish means deleting the
// article from the publish queue.
type Status string

const (
	StatusFetched        Status = "fetched"
	StatusReadyToPublish Status = "ready-to-publish"
	StatusPublished      Status = "published"
)

// Article is one candidate news item produced by a fetch attempt.
type Article struct {
	ID            string `json:"id"`
	NewsArticleID int64  `json:"news_article_id,omitempty"`
	IsTemporary   bool   `json:"is_temporary,omitempty"`
	TitleEn       string `json:"title_en,omitempty"`
	TitleZh       string `json:"title_zh,omitempty"`
	SummaryEn     string `json:"summary_en,omitempty"`
	SummaryZh     string `json:"summary_zh,omitempty"`
	FullContentEn string `json:"full_content_en,omitempty"`
	FullContentZh string `json:"full_content_zh,omitempty"`
	SourceID      int64  `json:"source_id,omitempty"`
	SourceName    string `json:"source_name,omitempty"`
	URL           string `json:"url,omitempty"`
	Status        Status `json:"status"`
	AttemptID     string `json:"attempt_id,omitempty"`
	InQueue       bool   `json:"in_queue,omitempty"`
}

// Title returns the best displayable title for the article.
func (a Article) Title() string {
	if a.TitleEn != "" {
		return a.TitleEn
	}
	if a.TitleZh != "" {
		return a.TitleZh
	}
	return "Untitled Article"
}

// FetchSettings configures one fetch operation.
type FetchSettings struct {
	Sources       []int64 `json:"sources"`
	MaxArticles   int     `json:"max_articles"`
	SummaryFormat string  `json:"summary_format"`
	SummaryLength string  `json:"summary_length"`
}

// FetchAttempt is one invocation of the multi-source fetch operation,
// carrying the settings snapshot it ran with and the articles it produced.
type FetchAttempt struct {
	ID           string        `json:"id"`
	Sequence     int           `json:"sequence"`
	Timestamp    time.Time     `json:"timestamp"`
	Settings     FetchSettings `json:"settings_used"`
	Articles     []Article     `json:"articles"`
	ArticleCount int           `json:"article_count"`
	Visible      bool          `json:"visible"`
}

// FetchOutcome summarizes a completed fetch for presentation. Zero added
// articles is a success, not an error.
type FetchOutcome struct {
	TotalAdded int           `json:"total_added"`
	Duration   time.Duration `json:"duration"`
	Message    string        `json:"message"`
}

// AutoFetchState is the client's view of the server-side recurring fetch.
// Visible goes false for the rest of the session after any 403.
type AutoFetchState struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	Visible  bool          `json:"visible"`
}

// Source is a configured external news provider.
type Source struct {
	ID      int64  `json:"id"`
	NameEn  string `json:"name_en"`
	NameZh  string `json:"name_zh"`
	FeedURL string `json:"feed_url,omitempty"`
}

// Headline is one entry from a source's public feed preview.
type Headline struct {
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
}

// SessionInfo is what the client can display about the saved session token.
type SessionInfo struct {
	Subject   string     `json:"subject"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}
