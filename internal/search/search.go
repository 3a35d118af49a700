// Package search queries the web through the Tavily API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultAPIURL     = "https://api.tavily.com/search"
	defaultMaxResults = 5

	// Result counts above this threshold switch the query to Tavily's
	// "advanced" depth, which is slower and costlier but broader.
	advancedDepthThreshold = 5
)

// ErrNotConfigured means no Tavily API key was provided.
var ErrNotConfigured = errors.New("search provider credential is not configured")

// ProviderError reports a non-2xx answer from the upstream.
type ProviderError struct {
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider returned status %d", e.StatusCode)
}

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Answer  string   `json:"answer,omitempty"`
	Source  string   `json:"source"`
}

type Service struct {
	httpClient    *http.Client
	apiURL        string
	apiKey        string
	defaultDomain string
}

// New builds a search service. defaultDomain scopes queries that carry no
// include_domains of their own to one known-reliable site.
func New(apiKey, defaultDomain string) *Service {
	return &Service{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		apiURL:        defaultAPIURL,
		apiKey:        apiKey,
		defaultDomain: defaultDomain,
	}
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeImages     bool     `json:"include_images"`
}

type searchResponse struct {
	Results []Result `json:"results"`
	Answer  string   `json:"answer"`
}

// SearchWeb runs one web search. maxResults <= 0 falls back to the default
// of 5; asking for more than 5 results selects the "advanced" depth.
func (s *Service) SearchWeb(ctx context.Context, query string, maxResults int, includeDomains, excludeDomains []string) (Response, error) {
	if s.apiKey == "" {
		return Response{}, ErrNotConfigured
	}

	depth := "basic"
	if maxResults > advancedDepthThreshold {
		depth = "advanced"
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if len(includeDomains) == 0 && s.defaultDomain != "" {
		includeDomains = []string{s.defaultDomain}
	}
	if excludeDomains == nil {
		excludeDomains = []string{}
	}

	body, err := json.Marshal(searchRequest{
		APIKey:            s.apiKey,
		Query:             query,
		SearchDepth:       depth,
		MaxResults:        maxResults,
		IncludeDomains:    includeDomains,
		ExcludeDomains:    excludeDomains,
		IncludeAnswer:     true,
		IncludeRawContent: false,
		IncludeImages:     false,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &ProviderError{StatusCode: resp.StatusCode}
	}

	var upstream searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return Response{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	return Response{
		Query:   query,
		Results: upstream.Results,
		Answer:  upstream.Answer,
		Source:  "Tavily",
	}, nil
}
