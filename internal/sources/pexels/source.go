package pexels

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wallpaperverse/api/internal/sources"
)

const (
	SourceID       = "pexels"
	DefaultBaseURL = "https://api.pexels.com/v1"
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Source implements sources.Source for the Pexels search API. Pexels exposes
// neither tags nor counters, so those stay empty.
type Source struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		logger:     logger.With("source", SourceID),
	}
}

func (s *Source) Name() string {
	return SourceID
}

func (s *Source) Fetch(ctx context.Context, query string, page, perPage int) []sources.ExternalItem {
	if s.apiKey == "" {
		s.logger.Warn("Pexels API key not configured")
		return []sources.ExternalItem{}
	}

	params := url.Values{
		"query":       {query},
		"page":        {strconv.Itoa(page)},
		"per_page":    {strconv.Itoa(perPage)},
		"orientation": {"landscape"},
	}
	headers := http.Header{"Authorization": {s.apiKey}}

	var resp searchResponse
	if err := sources.GetJSON(ctx, s.httpClient, s.baseURL+"/search", params, headers, &resp); err != nil {
		s.logger.Error("error fetching from Pexels", "query", query, "error", err)
		return []sources.ExternalItem{}
	}

	items := make([]sources.ExternalItem, 0, len(resp.Photos))
	for _, p := range resp.Photos {
		username := ""
		if p.PhotographerID != 0 {
			username = strconv.FormatInt(p.PhotographerID, 10)
		}
		items = append(items, sources.ExternalItem{
			ID:          sources.ExternalID(SourceID, p.ID),
			Source:      SourceID,
			Title:       p.Alt,
			Description: p.Alt,
			AltText:     p.Alt,
			URLs: sources.URLs{
				Full:    p.Src.Original,
				Regular: p.Src.Large2x,
				Small:   p.Src.Medium,
				Thumb:   p.Src.Small,
			},
			Width:  p.Width,
			Height: p.Height,
			Color:  p.AvgColor,
			Attribution: sources.Attribution{
				Name:       p.Photographer,
				Username:   username,
				ProfileURL: p.PhotographerURL,
			},
			Tags: []string{},
		})
	}
	return items
}
