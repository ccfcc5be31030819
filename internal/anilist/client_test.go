package anilist_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"anibridge/internal/anilist"
)

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func decodeRequest(t *testing.T, r *http.Request) capturedRequest {
	t.Helper()
	var req capturedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return req
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := anilist.New("  "); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchSendsFiltersAndPages(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		req := decodeRequest(t, r)
		if req.Variables["search"] != "Dororo" {
			t.Errorf("expected search variable, got %#v", req.Variables)
		}
		if req.Variables["episodesGreater"] != float64(11) {
			t.Errorf("expected episodesGreater 11, got %#v", req.Variables["episodesGreater"])
		}
		page := int(req.Variables["page"].(float64))
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":%t},"media":[{"id":%d,"title":{"romaji":"Dororo %d"}},{"id":%d}]}}}`,
			page < 3, page*10, page, page*10+1)
	}))
	t.Cleanup(server.Close)

	client, err := anilist.New(server.URL, anilist.WithToken("secret"), anilist.WithPageSize(2))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	gt := 11
	media, err := client.Search(context.Background(), anilist.Query{Search: "Dororo", Episodes: anilist.IntFilter{Greater: &gt}}, 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(media) != 3 {
		t.Fatalf("expected results truncated to limit 3, got %d", len(media))
	}
	if media[0].ID != 10 || media[0].DisplayTitle() != "Dororo 1" {
		t.Fatalf("unexpected first result %#v", media[0])
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls.Load())
	}
}

func TestFetchMediaBatchesIDs(t *testing.T) {
	var batches []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		ids, _ := req.Variables["ids"].([]any)
		batches = append(batches, len(ids))
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf(`{"id":%d,"format":"TV"}`, int(id.(float64)))
		}
		_, _ = fmt.Fprintf(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":false},"media":[%s]}}}`, strings.Join(parts, ","))
	}))
	t.Cleanup(server.Close)

	client, err := anilist.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ids := make([]int, 120)
	for i := range ids {
		ids[i] = i + 1
	}
	media, err := client.FetchMedia(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchMedia returned error: %v", err)
	}
	if len(media) != 120 {
		t.Fatalf("expected 120 media, got %d", len(media))
	}
	if fmt.Sprint(batches) != "[50 50 20]" {
		t.Fatalf("unexpected batch sizes %v", batches)
	}
}

func TestGraphQLErrorsSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Too Many Requests.","status":429}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := anilist.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Search(context.Background(), anilist.Query{Search: "x"}, 5)
	var apiErr *anilist.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || len(apiErr.Messages) != 1 {
		t.Fatalf("unexpected api error %#v", apiErr)
	}
}

func TestGenresAndTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		switch {
		case strings.Contains(req.Query, "GenreCollection"):
			_, _ = w.Write([]byte(`{"data":{"GenreCollection":["Action","Drama"]}}`))
		case strings.Contains(req.Query, "MediaTagCollection"):
			_, _ = w.Write([]byte(`{"data":{"MediaTagCollection":[{"name":"Samurai","isAdult":false},{"name":"Nudity","isAdult":true}]}}`))
		default:
			t.Errorf("unexpected query %s", req.Query)
		}
	}))
	t.Cleanup(server.Close)

	client, err := anilist.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	genres, err := client.Genres(context.Background())
	if err != nil || len(genres) != 2 {
		t.Fatalf("Genres = %v, %v", genres, err)
	}
	tags, err := client.Tags(context.Background())
	if err != nil || len(tags) != 1 || tags[0] != "Samurai" {
		t.Fatalf("Tags = %v, %v", tags, err)
	}
}

func TestQueryCacheKeyIgnoresListOrder(t *testing.T) {
	a := anilist.Query{Formats: []string{"TV", "MOVIE"}, Search: "Dororo"}
	b := anilist.Query{Formats: []string{"MOVIE", "TV"}, Search: "dororo "}
	if a.CacheKey() != b.CacheKey() {
		t.Fatalf("cache keys differ: %q vs %q", a.CacheKey(), b.CacheKey())
	}
	if !(anilist.Query{}).IsZero() || a.IsZero() {
		t.Fatal("IsZero mismatch")
	}
}
