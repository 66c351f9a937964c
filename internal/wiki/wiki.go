// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wiki looks up article summaries from Wikipedia.
//
// The demo backend answers knowledge questions with the REST summary
// endpoint of the configured language edition (Turkish by default). Only
// the summary surface is used; full article content is out of scope.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when no article matches the query.
var ErrNotFound = errors.New("no article found")

// Summary is a condensed article lookup result.
type Summary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	URL     string `json:"url"`
}

// Config controls the client.
type Config struct {
	// Language selects the Wikipedia edition, e.g. "tr" or "en".
	Language string

	// UserAgent identifies this client to the MediaWiki API, which
	// requires a descriptive agent string.
	UserAgent string

	// BaseURL overrides the API host. Empty means the public
	// https://<lang>.wikipedia.org. Tests point this at a local server.
	BaseURL string

	// Timeout bounds each lookup. Zero means 10 seconds.
	Timeout time.Duration
}

// Client fetches article summaries. Safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a summary client.
func NewClient(config Config) *Client {
	if config.Language == "" {
		config.Language = "tr"
	}
	if config.UserAgent == "" {
		config.UserAgent = "vikichat/1.0 (local chatbot client)"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// restSummary mirrors the fields we need from the REST summary response.
type restSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Type        string `json:"type"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Lookup fetches the summary for a topic. Blank queries and missing
// articles return ErrNotFound-wrapped errors.
func (c *Client) Lookup(ctx context.Context, query string) (Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Summary{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}

	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		c.baseURL(), url.PathEscape(strings.ReplaceAll(query, " ", "_")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Summary{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Summary{}, fmt.Errorf("wikipedia returned %d", resp.StatusCode)
	}

	var rs restSummary
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return Summary{}, fmt.Errorf("decoding summary: %w", err)
	}

	// Disambiguation pages have no usable extract.
	if rs.Type == "disambiguation" || rs.Extract == "" {
		return Summary{}, fmt.Errorf("%w: %q is ambiguous", ErrNotFound, query)
	}

	return Summary{
		Title:   rs.Title,
		Extract: rs.Extract,
		URL:     rs.ContentURLs.Desktop.Page,
	}, nil
}

func (c *Client) baseURL() string {
	if c.config.BaseURL != "" {
		return strings.TrimRight(c.config.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.wikipedia.org", c.config.Language)
}
