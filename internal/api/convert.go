package api

import (
	"anibridge/internal/capability"
	"anibridge/internal/search"
	"anibridge/internal/store"
)

// FromCapabilities converts registry entries in registry order.
func FromCapabilities(caps []capability.Capability) []FieldCapability {
	out := make([]FieldCapability, 0, len(caps))
	for _, c := range caps {
		ops := make([]string, len(c.Operators))
		for i, op := range c.Operators {
			ops[i] = string(op)
		}
		out = append(out, FieldCapability{
			Key:         c.Key,
			Aliases:     c.Aliases,
			Type:        string(c.Type),
			Shape:       string(c.Shape),
			Domain:      string(c.Domain),
			Operators:   ops,
			Values:      c.Values,
			Description: c.Description,
		})
	}
	return out
}

// fromResult copies the page metadata; rows are filled by the caller.
func fromResult(res *search.Result, correlationID string) *SearchResult {
	return &SearchResult{
		Query:         res.Query,
		Strategy:      string(res.Strategy),
		Total:         res.Total,
		Limit:         res.Limit,
		Offset:        res.Offset,
		CorrelationID: correlationID,
		Warnings:      res.Warnings,
		Rows:          make([]SearchRow, 0, len(res.Rows)),
	}
}

// FromStats converts store statistics.
func FromStats(stats store.Stats, path string) StatsResponse {
	byProvider := make(map[string]int, len(stats.ByProvider))
	for k, v := range stats.ByProvider {
		byProvider[k] = v
	}
	return StatsResponse{
		Mappings:   stats.Mappings,
		Custom:     stats.Custom,
		Overrides:  stats.Overrides,
		ByProvider: byProvider,
		Database:   path,
	}
}
