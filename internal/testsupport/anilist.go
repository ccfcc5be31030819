package testsupport

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"anibridge/internal/anilist"
	"anibridge/internal/mapping"
	"anibridge/internal/textutil"
)

// FakeAniList is an in-memory anilist.Searcher. Search applies the query
// filters the way AniList does and returns matches in id order.
type FakeAniList struct {
	mu       sync.Mutex
	media    map[int]anilist.Media
	searchFn func(ctx context.Context) error
	fetchErr error
	searches []anilist.Query
	fetches  [][]int
}

var _ anilist.Searcher = (*FakeAniList)(nil)

// NewFakeAniList seeds a fake with media.
func NewFakeAniList(media ...anilist.Media) *FakeAniList {
	f := &FakeAniList{media: make(map[int]anilist.Media, len(media))}
	for _, m := range media {
		f.media[m.ID] = m
	}
	return f
}

// FailSearch makes every Search return err.
func (f *FakeAniList) FailSearch(err error) {
	f.OnSearch(func(context.Context) error { return err })
}

// FailFetch makes every FetchMedia return err.
func (f *FakeAniList) FailFetch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// OnSearch runs fn before each Search. A non-nil error is returned as the
// search result.
func (f *FakeAniList) OnSearch(fn func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchFn = fn
}

// Searches returns the queries received so far.
func (f *FakeAniList) Searches() []anilist.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.searches)
}

// Fetches returns the id batches received so far.
func (f *FakeAniList) Fetches() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.fetches)
}

func (f *FakeAniList) Search(ctx context.Context, q anilist.Query, limit int) ([]anilist.Media, error) {
	f.mu.Lock()
	f.searches = append(f.searches, q)
	hook := f.searchFn
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []anilist.Media
	for _, m := range f.media {
		if queryMatches(q, m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b anilist.Media) int { return cmp.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeAniList) FetchMedia(ctx context.Context, ids []int) ([]anilist.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, slices.Clone(ids))
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []anilist.Media
	for _, id := range ids {
		if m, ok := f.media[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Genres lists the distinct genres of the seeded media.
func (f *FakeAniList) Genres(ctx context.Context) ([]string, error) {
	return f.collect(func(m anilist.Media) []string { return m.Genres }), nil
}

// Tags lists the distinct tag names of the seeded media.
func (f *FakeAniList) Tags(ctx context.Context) ([]string, error) {
	return f.collect(anilist.Media.TagNames), nil
}

func (f *FakeAniList) collect(values func(anilist.Media) []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.media {
		for _, v := range values(m) {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}

func queryMatches(q anilist.Query, m anilist.Media) bool {
	if q.Search != "" && !textutil.Matches(q.Search, m.Titles()) {
		return false
	}
	if len(q.Formats) > 0 && !containsFold(q.Formats, m.Format) {
		return false
	}
	if len(q.Statuses) > 0 && !containsFold(q.Statuses, m.Status) {
		return false
	}
	if q.Season != "" && !strings.EqualFold(q.Season, m.Season) {
		return false
	}
	for _, g := range q.Genres {
		if !containsFold(m.Genres, g) {
			return false
		}
	}
	for _, tag := range q.Tags {
		if !containsFold(m.TagNames(), tag) {
			return false
		}
	}
	return intMatches(q.Year, m.SeasonYear) &&
		intMatches(q.Episodes, m.Episodes) &&
		intMatches(q.Duration, m.Duration) &&
		intMatches(q.Score, m.AverageScore) &&
		intMatches(q.Popularity, m.Popularity)
}

func containsFold(values []string, want string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, want) })
}

func intMatches(f anilist.IntFilter, v *int) bool {
	if f.IsZero() {
		return true
	}
	if v == nil {
		return false
	}
	if f.Eq != nil && *v != *f.Eq {
		return false
	}
	if f.Greater != nil && *v <= *f.Greater {
		return false
	}
	if f.Lesser != nil && *v >= *f.Lesser {
		return false
	}
	return true
}

// SampleMedia returns AniList metadata for SampleMappings plus one title
// with no stored mapping (id 99001).
func SampleMedia() []anilist.Media {
	return []anilist.Media{
		{
			ID:         1,
			Title:      anilist.Title{Romaji: "Cowboy Bebop", English: "Cowboy Bebop"},
			Format:     "TV",
			Status:     "FINISHED",
			Season:     "SPRING",
			SeasonYear: mapping.IntPtr(1998),
			Episodes:   mapping.IntPtr(26),
			Genres:     []string{"Action", "Sci-Fi"},
		},
		{
			ID:         5,
			Title:      anilist.Title{Romaji: "Cowboy Bebop: Tengoku no Tobira", English: "Cowboy Bebop: The Movie"},
			Format:     "MOVIE",
			Status:     "FINISHED",
			Season:     "SUMMER",
			SeasonYear: mapping.IntPtr(2001),
			Episodes:   mapping.IntPtr(1),
			Genres:     []string{"Action", "Sci-Fi"},
		},
		{
			ID:         21,
			Title:      anilist.Title{Romaji: "ONE PIECE", English: "ONE PIECE"},
			Format:     "TV",
			Status:     "RELEASING",
			Season:     "FALL",
			SeasonYear: mapping.IntPtr(1999),
			Genres:     []string{"Action", "Adventure"},
		},
		{
			ID:         30,
			Title:      anilist.Title{Romaji: "Shin Seiki Evangelion", English: "Neon Genesis Evangelion"},
			Format:     "TV",
			Status:     "FINISHED",
			Season:     "FALL",
			SeasonYear: mapping.IntPtr(1995),
			Episodes:   mapping.IntPtr(26),
			Genres:     []string{"Action", "Mecha"},
		},
		{
			ID:         101347,
			Title:      anilist.Title{Romaji: "Dororo", English: "Dororo"},
			Format:     "TV",
			Status:     "FINISHED",
			Season:     "WINTER",
			SeasonYear: mapping.IntPtr(2019),
			Episodes:   mapping.IntPtr(24),
			Genres:     []string{"Action", "Adventure"},
		},
		{
			ID:         99001,
			Title:      anilist.Title{Romaji: "Dororo to Hyakkimaru"},
			Format:     "TV",
			Status:     "FINISHED",
			Season:     "SPRING",
			SeasonYear: mapping.IntPtr(1969),
			Episodes:   mapping.IntPtr(26),
			Genres:     []string{"Action", "Adventure"},
		},
	}
}
