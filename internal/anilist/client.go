package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public AniList GraphQL endpoint.
const DefaultBaseURL = "https://graphql.anilist.co"

// maxIDsPerRequest is AniList's page size ceiling.
const maxIDsPerRequest = 50

// Searcher defines the AniList operations used by mapping search.
type Searcher interface {
	Search(ctx context.Context, q Query, limit int) ([]Media, error)
	FetchMedia(ctx context.Context, ids []int) ([]Media, error)
}

// Client talks to the AniList GraphQL API.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken authenticates requests with an AniList bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithPageSize sets the per-request page size for searches.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 && size <= maxIDsPerRequest {
			c.pageSize = size
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates an AniList client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("anilist base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   maxIDsPerRequest,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// APIError reports a GraphQL or HTTP level failure.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("anilist returned %d", e.StatusCode)
	}
	return fmt.Sprintf("anilist returned %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode anilist request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)
	if resp.StatusCode != http.StatusOK || len(envelope.Errors) > 0 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range envelope.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode anilist response: %w", decodeErr)
	}
	if len(envelope.Data) == 0 {
		return errors.New("anilist response has no data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode anilist data: %w", err)
	}
	return nil
}

type pageResponse struct {
	Page struct {
		PageInfo struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		Media []Media `json:"media"`
	} `json:"Page"`
}

// Search runs q and returns up to limit results across pages. Title searches
// are ordered by AniList's match ranking, everything else by id.
func (c *Client) Search(ctx context.Context, q Query, limit int) ([]Media, error) {
	if limit <= 0 {
		return nil, nil
	}
	vars := q.variables()
	perPage := min(c.pageSize, limit)
	vars["perPage"] = perPage

	var out []Media
	for page := 1; len(out) < limit; page++ {
		vars["page"] = page
		var resp pageResponse
		if err := c.do(ctx, searchQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("anilist search page %d: %w", page, err)
		}
		out = append(out, resp.Page.Media...)
		if !resp.Page.PageInfo.HasNextPage || len(resp.Page.Media) == 0 {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchMedia returns metadata for ids, requesting at most 50 per call. Ids
// AniList does not know are absent from the result.
func (c *Client) FetchMedia(ctx context.Context, ids []int) ([]Media, error) {
	var out []Media
	for start := 0; start < len(ids); start += maxIDsPerRequest {
		end := min(start+maxIDsPerRequest, len(ids))
		var resp pageResponse
		vars := map[string]any{"ids": ids[start:end], "perPage": maxIDsPerRequest}
		if err := c.do(ctx, mediaByIDQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("anilist fetch media: %w", err)
		}
		out = append(out, resp.Page.Media...)
	}
	return out, nil
}

// Genres returns AniList's genre collection.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	var resp struct {
		GenreCollection []string `json:"GenreCollection"`
	}
	if err := c.do(ctx, genreQuery, nil, &resp); err != nil {
		return nil, fmt.Errorf("anilist genres: %w", err)
	}
	return resp.GenreCollection, nil
}

// Tags returns the names of AniList's non-adult media tags.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var resp struct {
		MediaTagCollection []struct {
			Name    string `json:"name"`
			IsAdult bool   `json:"isAdult"`
		} `json:"MediaTagCollection"`
	}
	if err := c.do(ctx, tagQuery, nil, &resp); err != nil {
		return nil, fmt.Errorf("anilist tags: %w", err)
	}
	names := make([]string, 0, len(resp.MediaTagCollection))
	for _, tag := range resp.MediaTagCollection {
		if !tag.IsAdult {
			names = append(names, tag.Name)
		}
	}
	return names, nil
}
