package unsplash

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
	SourceID       = "unsplash"
	DefaultBaseURL = "https://api.unsplash.com"
)

// Config holds Unsplash source configuration.
type Config struct {
	AccessKey string
	BaseURL   string
	Timeout   time.Duration
}

// Source implements sources.Source for the Unsplash search API.
type Source struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
	logger     *slog.Logger
}

// New creates a new Unsplash source.
func New(cfg Config, logger *slog.Logger) *Source {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		accessKey:  cfg.AccessKey,
		logger:     logger.With("source", SourceID),
	}
}

func (s *Source) Name() string {
	return SourceID
}

// Fetch searches landscape photos.
func (s *Source) Fetch(ctx context.Context, query string, page, perPage int) []sources.ExternalItem {
	if s.accessKey == "" {
		s.logger.Warn("Unsplash API key not configured")
		return []sources.ExternalItem{}
	}

	params := url.Values{
		"query":       {query},
		"page":        {strconv.Itoa(page)},
		"per_page":    {strconv.Itoa(perPage)},
		"orientation": {"landscape"},
	}
	headers := http.Header{
		"Accept-Version": {"v1"},
		"Authorization":  {"Client-ID " + s.accessKey},
	}

	var resp searchResponse
	if err := sources.GetJSON(ctx, s.httpClient, s.baseURL+"/search/photos", params, headers, &resp); err != nil {
		s.logger.Error("error fetching from Unsplash", "query", query, "error", err)
		return []sources.ExternalItem{}
	}

	return transform(resp.Results)
}

func transform(photos []photo) []sources.ExternalItem {
	items := make([]sources.ExternalItem, 0, len(photos))
	for _, p := range photos {
		title := p.Description
		if title == "" {
			title = p.AltDescription
		}

		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			if t.Title != "" {
				tags = append(tags, t.Title)
			}
		}

		items = append(items, sources.ExternalItem{
			ID:          sources.ExternalID(SourceID, p.ID),
			Source:      SourceID,
			Title:       title,
			Description: p.Description,
			AltText:     p.AltDescription,
			URLs: sources.URLs{
				Raw:     p.URLs.Raw,
				Full:    p.URLs.Full,
				Regular: p.URLs.Regular,
				Small:   p.URLs.Small,
				Thumb:   p.URLs.Thumb,
			},
			Width:    p.Width,
			Height:   p.Height,
			Color:    p.Color,
			BlurHash: p.BlurHash,
			Attribution: sources.Attribution{
				Name:       p.User.Name,
				Username:   p.User.Username,
				ProfileURL: p.User.Links.HTML,
			},
			Tags:      tags,
			Views:     p.Views,
			Downloads: p.Downloads,
			Likes:     p.Likes,
		})
	}
	return items
}
