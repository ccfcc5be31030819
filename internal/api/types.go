package api

import (
	"anibridge/internal/anilist"
	"anibridge/internal/mapping"
)

// SearchResult is one page of a query.
type SearchResult struct {
	Query         string      `json:"query"`
	Strategy      string      `json:"strategy"`
	Total         int         `json:"total"`
	Limit         int         `json:"limit"`
	Offset        int         `json:"offset"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Warnings      []string    `json:"warnings,omitempty"`
	Rows          []SearchRow `json:"rows"`
}

// SearchRow is one ranked result. Effective is nil for AniList entries with
// no stored mapping.
type SearchRow struct {
	AniListID int                `json:"anilistId"`
	Title     string             `json:"title,omitempty"`
	Score     float64            `json:"score,omitempty"`
	Media     *anilist.Media     `json:"media,omitempty"`
	Effective *mapping.Effective `json:"effective,omitempty"`
}

// FieldCapability describes one query field for autocomplete and help.
type FieldCapability struct {
	Key         string   `json:"key"`
	Aliases     []string `json:"aliases,omitempty"`
	Type        string   `json:"type"`
	Shape       string   `json:"shape"`
	Domain      string   `json:"domain"`
	Operators   []string `json:"operators"`
	Values      []string `json:"values,omitempty"`
	Description string   `json:"description,omitempty"`
}

// StatsResponse summarizes the mapping store.
type StatsResponse struct {
	Mappings   int            `json:"mappings"`
	Custom     int            `json:"custom"`
	Overrides  int            `json:"overrides"`
	ByProvider map[string]int `json:"byProvider"`
	Database   string         `json:"database"`
}
