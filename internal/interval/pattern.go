package interval

import (
	"strconv"
	"strings"
)

// Segment is one comma-separated part of an episode pattern. Ratio > 1 means
// several source episodes collapse into one destination episode (or the
// reverse when negative), as written with a "|n" suffix.
type Segment struct {
	Range Interval
	Ratio int
}

// Pattern is a parsed season pattern. An empty pattern covers the whole
// season.
type Pattern struct {
	Segments []Segment
}

// Whole reports whether the pattern maps the entire season.
func (p Pattern) Whole() bool { return len(p.Segments) == 0 }

// ParsePattern parses "e1-e12", "e13-", "e1-e12,e14", "e1-e24|2", or "".
func ParsePattern(text string) (Pattern, error) {
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return Pattern{}, nil
	}
	var out Pattern
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Pattern{}, &RangeParseError{Input: raw, Reason: "empty segment"}
		}
		seg := Segment{Ratio: 1}
		if body, ratio, ok := strings.Cut(part, "|"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(ratio))
			if err != nil || n == 0 {
				return Pattern{}, &RangeParseError{Input: raw, Reason: "ratio must be a non-zero integer"}
			}
			seg.Ratio = n
			part = strings.TrimSpace(body)
		}
		var err error
		switch {
		case strings.HasSuffix(part, "-"):
			var lo int
			lo, err = parseBound(strings.TrimSuffix(part, "-"))
			seg.Range = Interval{Lo: lo, Hi: Open}
		case strings.HasPrefix(part, "-"):
			var hi int
			hi, err = parseBound(strings.TrimPrefix(part, "-"))
			seg.Range = Interval{Lo: 1, Hi: hi}
			if err == nil && hi < 1 {
				err = &RangeParseError{Input: raw, Reason: "upper bound must be positive"}
			}
		default:
			seg.Range, err = Parse(part)
		}
		if err != nil {
			if rpe, ok := err.(*RangeParseError); ok {
				return Pattern{}, &RangeParseError{Input: raw, Reason: rpe.Reason}
			}
			return Pattern{}, &RangeParseError{Input: raw, Reason: err.Error()}
		}
		out.Segments = append(out.Segments, seg)
	}
	return out, nil
}

// ParseSeasonKey parses "sN" into N.
func ParseSeasonKey(key string) (int, error) {
	trimmed := strings.TrimSpace(key)
	if len(trimmed) < 2 || (trimmed[0] != 's' && trimmed[0] != 'S') {
		return 0, &RangeParseError{Input: key, Reason: "season key must look like s<number>"}
	}
	n, err := strconv.Atoi(trimmed[1:])
	if err != nil || n < 0 {
		return 0, &RangeParseError{Input: key, Reason: "season number must be a non-negative integer"}
	}
	return n, nil
}

// SeasonKey formats season n as "sN".
func SeasonKey(n int) string { return "s" + strconv.Itoa(n) }
