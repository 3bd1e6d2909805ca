package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"newsdesk"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// Notice is the transient-notification analog: a short success or
// informational line distinguished from errors by prefix, never a modal.
func (f *Formatter) Notice(format string, args ...interface{}) {
	switch f.format {
	case FormatJSON:
		json.NewEncoder(f.out).Encode(map[string]string{
			"notice": fmt.Sprintf(format, args...),
		})
	case FormatText:
		fmt.Fprintf(f.out, "notice\t"+format+"\n", args...)
	case FormatHuman:
		fmt.Fprintf(f.out, "✓ "+format+"\n", args...)
	}
}

// OutputFetchOutcome outputs the result of a fetch operation.
func (f *Formatter) OutputFetchOutcome(outcome *newsdesk.FetchOutcome) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(outcome)
	case FormatText:
		fmt.Fprintf(f.out, "total_added=%d\n", outcome.TotalAdded)
		fmt.Fprintf(f.out, "duration=%s\n", outcome.Duration.Round(time.Millisecond))
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "%s (%s)\n", outcome.Message, outcome.Duration.Round(time.Millisecond))
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputAttemptList outputs the fetch-attempt history.
func (f *Formatter) OutputAttemptList(attempts []newsdesk.FetchAttempt) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(attempts)
	case FormatText:
		for _, at := range attempts {
			fmt.Fprintf(f.out, "seq=%d\tid=%s\tarticles=%d\ttime=%s\tsources=%s\n",
				at.Sequence, at.ID, at.ArticleCount, at.Timestamp.Format(time.RFC3339), formatSources(at.Settings.Sources))
		}
		return nil
	case FormatHuman:
		if len(attempts) == 0 {
			fmt.Fprintln(f.out, "No fetch attempts yet")
			return nil
		}
		fmt.Fprintf(f.out, "Fetch attempts (%d):\n\n", len(attempts))
		for _, at := range attempts {
			fmt.Fprintf(f.out, "#%d  %s  %d article(s)\n", at.Sequence, at.Timestamp.Format("2006-01-02 15:04"), at.ArticleCount)
			fmt.Fprintf(f.out, "    sources: %s, max %d, %s/%s\n",
				formatSources(at.Settings.Sources), at.Settings.MaxArticles,
				at.Settings.SummaryFormat, at.Settings.SummaryLength)
			if at.Visible {
				for _, a := range at.Articles {
					fmt.Fprintf(f.out, "    • [%s] %s\n", a.Status, a.Title())
				}
			}
			fmt.Fprintln(f.out, "---")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputArticleList outputs the flattened article view.
func (f *Formatter) OutputArticleList(articles []newsdesk.Article) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(articles)
	case FormatText:
		for _, a := range articles {
			fmt.Fprintf(f.out, "id=%s\tstatus=%s\tsource=%s\ttitle=%s\n",
				a.ID, a.Status, a.SourceName, a.Title())
		}
		return nil
	case FormatHuman:
		if len(articles) == 0 {
			fmt.Fprintln(f.out, "No fetched articles")
			return nil
		}
		fmt.Fprintf(f.out, "Fetched articles (%d):\n\n", len(articles))
		for _, a := range articles {
			marker := " "
			if a.InQueue {
				marker = "Q"
			}
			fmt.Fprintf(f.out, "%s [%s] %s\n", marker, a.Status, a.Title())
			if a.TitleZh != "" && a.TitleEn != "" {
				fmt.Fprintf(f.out, "    %s\n", a.TitleZh)
			}
			fmt.Fprintf(f.out, "    id=%s source=%s\n", a.ID, a.SourceName)
			if a.URL != "" {
				fmt.Fprintf(f.out, "    %s\n", a.URL)
			}
			if a.SummaryEn != "" {
				fmt.Fprintf(f.out, "    %s\n", truncate(a.SummaryEn, 200))
			}
			fmt.Fprintln(f.out, "---")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputAutoFetch outputs the auto-fetch state.
func (f *Formatter) OutputAutoFetch(state newsdesk.AutoFetchState) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(state)
	case FormatText:
		fmt.Fprintf(f.out, "enabled=%t\tinterval=%s\tvisible=%t\n", state.Enabled, state.Interval, state.Visible)
		return nil
	case FormatHuman:
		if !state.Visible {
			fmt.Fprintln(f.out, "Auto-fetch is not available for this account")
			return nil
		}
		if state.Enabled {
			fmt.Fprintf(f.out, "Auto-fetch is ON (every %s)\n", state.Interval)
		} else {
			fmt.Fprintln(f.out, "Auto-fetch is OFF")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputSourceList outputs the source catalog.
func (f *Formatter) OutputSourceList(list []newsdesk.Source) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(list)
	case FormatText:
		for _, s := range list {
			fmt.Fprintf(f.out, "id=%d\tname=%s\tname_zh=%s\n", s.ID, s.NameEn, s.NameZh)
		}
		return nil
	case FormatHuman:
		for _, s := range list {
			fmt.Fprintf(f.out, "%2d  %s (%s)\n", s.ID, s.NameEn, s.NameZh)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputHeadlines outputs a source preview.
func (f *Formatter) OutputHeadlines(src string, headlines []newsdesk.Headline) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(headlines)
	case FormatText:
		for _, h := range headlines {
			fmt.Fprintf(f.out, "title=%s\tlink=%s\n", h.Title, h.Link)
		}
		return nil
	case FormatHuman:
		if len(headlines) == 0 {
			fmt.Fprintf(f.out, "No current headlines from %s\n", src)
			return nil
		}
		fmt.Fprintf(f.out, "Current headlines from %s:\n\n", src)
		for _, h := range headlines {
			fmt.Fprintf(f.out, "  • %s\n", h.Title)
			if h.Link != "" {
				fmt.Fprintf(f.out, "    %s\n", h.Link)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

func formatSources(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

// truncate truncates a string to maxLen characters
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
