package articles

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"newsdesk/internal/sources"
)

// The backend emits attempt and article payloads in several shapes and
// casings depending on which service produced them. Everything in this file
// exists to confine that problem to one boundary: whatever comes in, what
// goes out is the canonical Attempt/Article model. A malformed field
// degrades to absent, never to an error.

const untitled = "Untitled Article"

// stripper removes all markup from summary and content fields. The backend
// sometimes returns fragments with inline HTML from source pages.
var stripper = bluemonday.StrictPolicy()

// Field alias tables. Order matters: the first key present wins.
var (
	articleIDAliases     = []string{"id", "Id", "ID"}
	newsArticleIDAliases = []string{"newsArticleId", "NewsArticleId", "newsArticleID", "articleId", "ArticleId"}
	titleEnAliases       = []string{"titleEn", "TitleEn", "title_en", "title", "Title"}
	titleZhAliases       = []string{"titleZh", "TitleZh", "title_zh", "titleCn", "TitleCn"}
	summaryEnAliases     = []string{"summaryEn", "SummaryEn", "summary_en", "summary", "Summary"}
	summaryZhAliases     = []string{"summaryZh", "SummaryZh", "summary_zh", "summaryCn", "SummaryCn"}
	contentEnAliases     = []string{"fullContentEn", "FullContentEn", "contentEn", "ContentEn", "content", "Content"}
	contentZhAliases     = []string{"fullContentZh", "FullContentZh", "contentZh", "ContentZh", "contentCn", "ContentCn"}
	sourceIDAliases      = []string{"sourceId", "SourceId", "sourceID", "source_id"}
	sourceNameAliases    = []string{"sourceName", "SourceName", "source_name", "name", "Name"}
	urlAliases           = []string{"url", "Url", "URL", "link", "Link"}
	statusAliases        = []string{"status", "Status"}

	attemptIDAliases       = []string{"id", "Id", "ID", "attemptId", "AttemptId"}
	sequenceAliases        = []string{"sequence", "Sequence", "attemptNumber", "AttemptNumber"}
	timestampAliases       = []string{"timestamp", "Timestamp", "fetchedAt", "FetchedAt", "createdAt", "CreatedAt"}
	attemptSettingsAliases = []string{"settingsUsed", "SettingsUsed", "settings", "Settings"}

	settingsSourcesAliases = []string{"sources", "Sources", "sourceIds", "SourceIds"}
	maxArticlesAliases     = []string{"maxArticles", "MaxArticles", "max_articles"}
	summaryFormatAliases   = []string{"summaryFormat", "SummaryFormat", "summary_format"}
	summaryLengthAliases   = []string{"summaryLength", "SummaryLength", "summary_length"}

	// Wrapper keys that may hold a nested article array.
	nestedArticleKeys = []string{"articles", "Articles", "items", "Items", "results", "Results", "Data"}
)

// statusByBackend maps backend status strings to the canonical Status.
// Unrecognized values fall back to StatusFetched.
var statusByBackend = map[string]Status{
	"Draft":            StatusFetched,
	"draft":            StatusFetched,
	"fetched":          StatusFetched,
	"ReadyForPublish":  StatusReadyToPublish,
	"readyForPublish":  StatusReadyToPublish,
	"ready-to-publish": StatusReadyToPublish,
	"Published":        StatusPublished,
	"published":        StatusPublished,
}

// ExtractRawArticles pulls a flat sequence of raw article objects out of an
// arbitrarily shaped payload. Tolerated shapes:
//
//	{"results": [{"sourceId": 1, "name": "...", "articles": [...]}]}
//	[{article}, {article}, ...]
//	[{"articles": [...]}, {"Items": [...]}, ...]
//	{"Articles": [...]} (or articles/items/Items/Data)
//
// An unrecognized shape yields an empty slice, not an error: an empty fetch
// result is a valid outcome.
func ExtractRawArticles(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		return extractFromList(v)
	case map[string]any:
		for _, key := range nestedArticleKeys {
			if nested, ok := v[key].([]any); ok {
				return extractFromList(nested)
			}
		}
	}
	return nil
}

// extractFromList handles a bare list whose elements are either article
// objects or wrappers carrying a nested article array. A wrapper's sourceId
// and name are copied down onto articles that lack their own.
func extractFromList(list []any) []map[string]any {
	var out []map[string]any
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		nested := nestedList(m)
		if nested == nil {
			out = append(out, m)
			continue
		}
		for _, n := range nested {
			nm, ok := n.(map[string]any)
			if !ok {
				continue
			}
			if _, has := pickNumber(nm, sourceIDAliases); !has {
				if id, ok := pickNumber(m, sourceIDAliases); ok {
					nm["sourceId"] = id
				}
			}
			if pickString(nm, sourceNameAliases) == "" {
				if name := pickString(m, sourceNameAliases); name != "" {
					nm["sourceName"] = name
				}
			}
			out = append(out, nm)
		}
	}
	return out
}

// nestedList returns the first nested article array found on a wrapper
// object, or nil when the object looks like an article itself.
func nestedList(m map[string]any) []any {
	for _, key := range nestedArticleKeys {
		if nested, ok := m[key].([]any); ok {
			return nested
		}
	}
	return nil
}

// NormalizeArticle converts one raw article object into the canonical shape.
// attemptID and index produce the synthetic placeholder identity when the
// backend has not assigned a canonical ID yet.
func NormalizeArticle(raw map[string]any, attemptID string, index int) Article {
	a := Article{
		NewsArticleID: pickInt64(raw, newsArticleIDAliases),
		TitleEn:       pickString(raw, titleEnAliases),
		TitleZh:       pickString(raw, titleZhAliases),
		SummaryEn:     clean(pickString(raw, summaryEnAliases)),
		SummaryZh:     clean(pickString(raw, summaryZhAliases)),
		FullContentEn: clean(pickString(raw, contentEnAliases)),
		FullContentZh: clean(pickString(raw, contentZhAliases)),
		SourceID:      pickInt64(raw, sourceIDAliases),
		SourceName:    pickString(raw, sourceNameAliases),
		URL:           pickString(raw, urlAliases),
		Status:        normalizeStatus(pickString(raw, statusAliases)),
		AttemptID:     attemptID,
	}

	a.ID = pickString(raw, articleIDAliases)
	if a.ID == "" {
		if id, ok := pickNumber(raw, articleIDAliases); ok {
			a.ID = strconv.FormatInt(int64(id), 10)
		}
	}
	if a.ID == "" && a.NewsArticleID != 0 {
		a.ID = strconv.FormatInt(a.NewsArticleID, 10)
	}
	if a.ID == "" {
		a.ID = fmt.Sprintf("%s-%d", attemptID, index)
		a.IsTemporary = true
	}

	if a.SourceName == "" && a.SourceID != 0 {
		a.SourceName = sources.NameFor(a.SourceID)
	}
	if a.TitleEn == "" && a.TitleZh == "" {
		a.TitleEn = untitled
	}
	return a
}

// NormalizeAttempt converts one raw attempt object. index supplies a
// fallback 1-based sequence when the server did not send one.
func NormalizeAttempt(raw map[string]any, index int) Attempt {
	at := Attempt{
		Sequence:  int(pickInt64(raw, sequenceAliases)),
		Timestamp: pickTime(raw, timestampAliases),
	}

	at.ID = pickString(raw, attemptIDAliases)
	if at.ID == "" {
		if id, ok := pickNumber(raw, attemptIDAliases); ok {
			at.ID = strconv.FormatInt(int64(id), 10)
		}
	}
	if at.Sequence == 0 {
		at.Sequence = index + 1
	}

	for _, key := range attemptSettingsAliases {
		if s, ok := raw[key]; ok {
			at.Settings = NormalizeSettings(s)
			break
		}
	}

	for i, rawArticle := range ExtractRawArticles(rawArticleContainer(raw)) {
		at.Articles = append(at.Articles, NormalizeArticle(rawArticle, at.ID, i))
	}
	return at
}

// rawArticleContainer narrows an attempt object down to whatever holds its
// article list, so ExtractRawArticles does not mistake the attempt itself
// for an article.
func rawArticleContainer(raw map[string]any) any {
	if nested := nestedList(raw); nested != nil {
		return nested
	}
	return nil
}

// NormalizeAttempts parses the attempts-list response body. Any element that
// is not an object is skipped.
func NormalizeAttempts(body json.RawMessage) []Attempt {
	var list []any
	if err := json.Unmarshal(body, &list); err != nil {
		// Some backends wrap the list in {"attempts": [...]} or {"Data": [...]}.
		var wrapper map[string]any
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil
		}
		for _, key := range []string{"attempts", "Attempts", "fetchAttempts", "Data", "data"} {
			if nested, ok := wrapper[key].([]any); ok {
				list = nested
				break
			}
		}
	}

	var out []Attempt
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, NormalizeAttempt(m, len(out)))
	}
	return out
}

// NormalizeSettings parses a settings snapshot. The structured form carries
// a sources array; older attempts carry a comma-separated source-ID string.
// Missing fields stay zero, never an error.
func NormalizeSettings(raw any) Settings {
	m, ok := raw.(map[string]any)
	if !ok {
		return Settings{}
	}

	s := Settings{
		MaxArticles:   int(pickInt64(m, maxArticlesAliases)),
		SummaryFormat: pickString(m, summaryFormatAliases),
		SummaryLength: pickString(m, summaryLengthAliases),
	}

	for _, key := range settingsSourcesAliases {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch src := v.(type) {
		case []any:
			for _, id := range src {
				if n, ok := id.(float64); ok {
					s.Sources = append(s.Sources, int64(n))
				}
			}
		case string:
			for _, part := range strings.Split(src, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if n, err := strconv.ParseInt(part, 10, 64); err == nil {
					s.Sources = append(s.Sources, n)
				}
			}
		}
		if s.Sources != nil {
			break
		}
	}
	return s
}

func normalizeStatus(raw string) Status {
	if st, ok := statusByBackend[raw]; ok {
		return st
	}
	return StatusFetched
}

// clean strips markup and collapses the whitespace it leaves behind.
func clean(s string) string {
	if s == "" {
		return ""
	}
	stripped := stripper.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// --- field pickers ---

func pickString(m map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func pickNumber(m map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		if v, ok := m[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func pickInt64(m map[string]any, keys []string) int64 {
	if n, ok := pickNumber(m, keys); ok {
		return int64(n)
	}
	// Numeric fields occasionally arrive as strings.
	if s := pickString(m, keys); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func pickTime(m map[string]any, keys []string) time.Time {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
				if t, err := time.Parse(layout, v); err == nil {
					return t
				}
			}
		case float64:
			// Epoch milliseconds.
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return time.Time{}
}
