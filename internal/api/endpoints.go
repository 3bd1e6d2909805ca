package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// FetchRequest is the body for the trigger-fetch endpoint.
type FetchRequest struct {
	SourceIDs     []int64 `json:"sourceIds"`
	MaxArticles   int     `json:"maxArticles"`
	SummaryFormat string  `json:"summaryFormat"`
	SummaryLength string  `json:"summaryLength"`
}

// FetchResponse summarizes a completed fetch. Results is kept raw: the
// normalizer owns its shape, and the client treats the response only as a
// trigger to re-sync the attempts list.
type FetchResponse struct {
	TotalAdded int             `json:"totalAdded"`
	Results    json.RawMessage `json:"results,omitempty"`
}

// AutoFetchStatus is the server-side recurring-fetch state.
type AutoFetchStatus struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"intervalSeconds"`
}

// FetchAttempts lists the user's fetch attempts. limit <= 0 omits the limit
// parameter. The body is returned raw for the normalizer.
func (c *Client) FetchAttempts(ctx context.Context, limit int) (json.RawMessage, error) {
	path := "/api/articles/fetchAttempts"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(fmt.Sprint(limit))
	}
	return c.Call(ctx, http.MethodGet, path, nil)
}

// FetchArticles triggers a multi-source fetch.
func (c *Client) FetchArticles(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	body, err := c.Call(ctx, http.MethodPost, "/api/articles/fetchArticles", req)
	if err != nil {
		return nil, err
	}
	var resp FetchResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode fetch response: %w", err)
		}
	}
	return &resp, nil
}

// DeleteAttempt deletes one attempt; the server cascades its articles and
// renumbers the remaining attempts starting at 1.
func (c *Client) DeleteAttempt(ctx context.Context, attemptID string) error {
	_, err := c.Call(ctx, http.MethodDelete, "/api/articles/fetchAttempts/"+url.PathEscape(attemptID), nil)
	return err
}

// DeleteArticle deletes one article from an attempt.
func (c *Client) DeleteArticle(ctx context.Context, attemptID, articleID string) error {
	_, err := c.Call(ctx, http.MethodDelete,
		"/api/articles/fetchAttempts/"+url.PathEscape(attemptID)+"/articles/"+url.PathEscape(articleID), nil)
	return err
}

// MarkReadyForPublish bulk-marks articles by canonical ID.
func (c *Client) MarkReadyForPublish(ctx context.Context, articleIDs []int64) error {
	_, err := c.Call(ctx, http.MethodPost, "/api/articles/markReadyForPublish",
		map[string][]int64{"articleIds": articleIDs})
	return err
}

// GetAutoFetch reads the auto-fetch status. May return a 403 APIError for
// users without the consultant permission.
func (c *Client) GetAutoFetch(ctx context.Context) (*AutoFetchStatus, error) {
	body, err := c.Call(ctx, http.MethodGet, "/api/autofetch", nil)
	if err != nil {
		return nil, err
	}
	var status AutoFetchStatus
	if len(body) > 0 {
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decode autofetch status: %w", err)
		}
	}
	return &status, nil
}

// SetAutoFetch enables or disables server-side auto-fetch and returns the
// authoritative interval.
func (c *Client) SetAutoFetch(ctx context.Context, enable bool) (*AutoFetchStatus, error) {
	path := "/api/autofetch/disable"
	if enable {
		path = "/api/autofetch/enable"
	}
	body, err := c.Call(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	status := &AutoFetchStatus{Enabled: enable}
	if len(body) > 0 {
		if err := json.Unmarshal(body, status); err != nil {
			return nil, fmt.Errorf("decode autofetch response: %w", err)
		}
		status.Enabled = enable
	}
	return status, nil
}
