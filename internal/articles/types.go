package articles

import "time"

// Status tracks an article through the curation pipeline. Transitions only
// move forward: fetched -> ready-to-publish -> published.
type Status string

const (
	StatusFetched        Status = "fetched"
	StatusReadyToPublish Status = "ready-to-publish"
	StatusPublished      Status = "published"
)

// Settings is the configuration for one fetch operation. Each attempt embeds
// an immutable snapshot of the settings that were active when it ran.
type Settings struct {
	Sources       []int64 `json:"sources"`
	MaxArticles   int     `json:"maxArticles"`
	SummaryFormat string  `json:"summaryFormat"` // "bullet" or "paragraph"
	SummaryLength string  `json:"summaryLength"` // "short", "medium" or "long"
}

// Article is one candidate news item held inside a fetch attempt.
type Article struct {
	// ID is the canonical identity once persisted server-side. When the
	// backend has not assigned one yet it is a synthetic "attemptID-index"
	// placeholder and IsTemporary is true.
	ID            string `json:"id"`
	NewsArticleID int64  `json:"newsArticleId,omitempty"`
	IsTemporary   bool   `json:"isTemporary,omitempty"`

	TitleEn       string `json:"titleEn,omitempty"`
	TitleZh       string `json:"titleZh,omitempty"`
	SummaryEn     string `json:"summaryEn,omitempty"`
	SummaryZh     string `json:"summaryZh,omitempty"`
	FullContentEn string `json:"fullContentEn,omitempty"`
	FullContentZh string `json:"fullContentZh,omitempty"`

	SourceID   int64  `json:"sourceId,omitempty"`
	SourceName string `json:"sourceName,omitempty"`
	URL        string `json:"url,omitempty"`

	Status Status `json:"status"`

	// AttemptID back-references the owning attempt. The attempt owns the
	// article; this is only for display and deletion routing.
	AttemptID string `json:"attemptId,omitempty"`
}

// Title returns the best displayable title for the article.
func (a Article) Title() string {
	if a.TitleEn != "" {
		return a.TitleEn
	}
	if a.TitleZh != "" {
		return a.TitleZh
	}
	return untitled
}

// Attempt is one invocation of the multi-source fetch operation.
type Attempt struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Settings  Settings  `json:"settingsUsed"`
	Articles  []Article `json:"articles"`
}

// ArticleCount is derived: always the length of Articles.
func (a Attempt) ArticleCount() int { return len(a.Articles) }
