// Package sources defines the provider-neutral shape of an image fetched from
// a stock photo API and the Source contract each provider adapter satisfies.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Source fetches one page of search results from a provider.
//
// Fetch never fails: missing credentials or a failed request yield an empty
// slice and a log line, so one provider outage cannot abort a sync.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, page, perPage int) []ExternalItem
}

// ExternalItem is a provider-normalized image that has not been persisted yet.
type ExternalItem struct {
	ID          string // "<provider>_<nativeId>"
	Source      string
	Title       string
	Description string
	AltText     string
	URLs        URLs
	Width       int
	Height      int
	Color       string
	BlurHash    string
	Attribution Attribution
	Tags        []string
	Views       int64
	Downloads   int64
	Likes       int64
}

type URLs struct {
	Raw     string
	Full    string
	Regular string
	Small   string
	Thumb   string
}

type Attribution struct {
	Name       string
	Username   string
	ProfileURL string
}

// ExternalID builds the provider-qualified id used as the wallpaper's unique key.
func ExternalID(provider string, nativeID any) string {
	return fmt.Sprintf("%s_%v", provider, nativeID)
}

// StatusError is returned by GetJSON for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Body)
}

// GetJSON performs a GET request and decodes a JSON response body into out.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, params url.Values, headers http.Header, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WallpaperVerse/1.0")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
