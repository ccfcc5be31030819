package anilist

import "strings"

// Title holds the localized titles of a media entry.
type Title struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Tag is an AniList content tag.
type Tag struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Media is the subset of AniList media fields the query language can test.
type Media struct {
	ID           int      `json:"id"`
	IDMal        *int     `json:"idMal"`
	Title        Title    `json:"title"`
	Synonyms     []string `json:"synonyms"`
	Format       string   `json:"format"`
	Status       string   `json:"status"`
	Season       string   `json:"season"`
	SeasonYear   *int     `json:"seasonYear"`
	Episodes     *int     `json:"episodes"`
	Duration     *int     `json:"duration"`
	AverageScore *int     `json:"averageScore"`
	Popularity   *int     `json:"popularity"`
	Genres       []string `json:"genres"`
	Tags         []Tag    `json:"tags"`
}

// Titles returns every non-empty title and synonym, preferred first.
func (m Media) Titles() []string {
	var out []string
	for _, t := range []string{m.Title.English, m.Title.Romaji, m.Title.Native} {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	for _, s := range m.Synonyms {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DisplayTitle returns the preferred title for display.
func (m Media) DisplayTitle() string {
	if titles := m.Titles(); len(titles) > 0 {
		return titles[0]
	}
	return ""
}

// TagNames lists the tag names.
func (m Media) TagNames() []string {
	out := make([]string, len(m.Tags))
	for i, t := range m.Tags {
		out[i] = t.Name
	}
	return out
}
