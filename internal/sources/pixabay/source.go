package pixabay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wallpaperverse/api/internal/sources"
)

const (
	SourceID       = "pixabay"
	DefaultBaseURL = "https://pixabay.com/api"

	// Pixabay rejects per_page values outside 3..200.
	minPerPage = 3
	maxPerPage = 200
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Source implements sources.Source for the Pixabay image API. Only photos of
// at least 1920x1080 are requested.
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
		s.logger.Warn("Pixabay API key not configured")
		return []sources.ExternalItem{}
	}

	params := url.Values{
		"key":         {s.apiKey},
		"q":           {query},
		"page":        {strconv.Itoa(page)},
		"per_page":    {strconv.Itoa(clampPerPage(perPage))},
		"image_type":  {"photo"},
		"orientation": {"all"},
		"min_width":   {"1920"},
		"min_height":  {"1080"},
		"safesearch":  {"true"},
	}

	var resp searchResponse
	if err := sources.GetJSON(ctx, s.httpClient, s.baseURL+"/", params, nil, &resp); err != nil {
		s.logger.Error("error fetching from Pixabay", "query", query, "error", err)
		return []sources.ExternalItem{}
	}

	items := make([]sources.ExternalItem, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		username := ""
		if h.UserID != 0 {
			username = strconv.FormatInt(h.UserID, 10)
		}
		profileURL := ""
		if h.User != "" && h.UserID != 0 {
			profileURL = fmt.Sprintf("https://pixabay.com/users/%s-%d/", h.User, h.UserID)
		}
		items = append(items, sources.ExternalItem{
			ID:          sources.ExternalID(SourceID, h.ID),
			Source:      SourceID,
			Title:       h.Tags,
			Description: h.Tags,
			URLs: sources.URLs{
				Full:    h.LargeImageURL,
				Regular: h.WebformatURL,
				Small:   h.PreviewURL,
				Thumb:   h.PreviewURL,
			},
			Width:  h.ImageWidth,
			Height: h.ImageHeight,
			Attribution: sources.Attribution{
				Name:       h.User,
				Username:   username,
				ProfileURL: profileURL,
			},
			Tags:      splitTags(h.Tags),
			Views:     h.Views,
			Downloads: h.Downloads,
			Likes:     h.Likes,
		})
	}

	// Pixabay may return more than we asked for when perPage was clamped up.
	if perPage > 0 && len(items) > perPage {
		items = items[:perPage]
	}
	return items
}

func clampPerPage(n int) int {
	if n < minPerPage {
		return minPerPage
	}
	if n > maxPerPage {
		return maxPerPage
	}
	return n
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
