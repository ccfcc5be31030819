// Package interval parses and remaps inclusive episode ranges.
//
// Season mappings store episode patterns such as "e1-e12" or "e13-,e20|2".
// This package turns those strings into canonical integer intervals, checks
// season keys ("s1"), and translates an interval in one provider's numbering
// into another's through an ordered edge table.
package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Open is the upper bound used for open-ended ranges such as "e13-".
const Open = math.MaxInt32

// Interval is an inclusive integer range with Lo <= Hi.
type Interval struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// RangeParseError reports a malformed range or pattern.
type RangeParseError struct {
	Input  string
	Reason string
}

func (e *RangeParseError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Input, e.Reason)
}

// New returns [lo, hi] or an error when the bounds are inverted or negative.
func New(lo, hi int) (Interval, error) {
	if lo < 0 || hi < 0 {
		return Interval{}, &RangeParseError{Input: fmt.Sprintf("%d-%d", lo, hi), Reason: "bounds must be non-negative"}
	}
	if lo > hi {
		return Interval{}, &RangeParseError{Input: fmt.Sprintf("%d-%d", lo, hi), Reason: "lower bound exceeds upper bound"}
	}
	return Interval{Lo: lo, Hi: hi}, nil
}

// Point returns [n, n].
func Point(n int) Interval { return Interval{Lo: n, Hi: n} }

// Parse accepts "N" or "N-M" with an optional 'e' prefix on each bound.
func Parse(text string) (Interval, error) {
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return Interval{}, &RangeParseError{Input: raw, Reason: "empty"}
	}
	loText, hiText, isRange := strings.Cut(text, "-")
	lo, err := parseBound(loText)
	if err != nil {
		return Interval{}, &RangeParseError{Input: raw, Reason: err.Error()}
	}
	hi := lo
	if isRange {
		if hi, err = parseBound(hiText); err != nil {
			return Interval{}, &RangeParseError{Input: raw, Reason: err.Error()}
		}
	}
	if lo > hi {
		return Interval{}, &RangeParseError{Input: raw, Reason: "lower bound exceeds upper bound"}
	}
	return Interval{Lo: lo, Hi: hi}, nil
}

func parseBound(text string) (int, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "e"), "E")
	if text == "" {
		return 0, fmt.Errorf("missing bound")
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("bound %q is not an integer", text)
	}
	if n < 0 {
		return 0, fmt.Errorf("bound %d is negative", n)
	}
	return n, nil
}

// Len returns the number of integers in the interval.
func (iv Interval) Len() int { return iv.Hi - iv.Lo + 1 }

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return iv.Lo <= other.Lo && other.Hi <= iv.Hi
}

// Overlaps reports whether the two intervals share any integer.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Lo <= other.Hi && other.Lo <= iv.Hi
}

// Shift moves both bounds by delta.
func (iv Interval) Shift(delta int) Interval {
	return Interval{Lo: iv.Lo + delta, Hi: iv.Hi + delta}
}

// IsOpen reports whether the interval has no upper bound.
func (iv Interval) IsOpen() bool { return iv.Hi == Open }

func (iv Interval) String() string {
	switch {
	case iv.IsOpen():
		return fmt.Sprintf("%d-", iv.Lo)
	case iv.Lo == iv.Hi:
		return strconv.Itoa(iv.Lo)
	}
	return fmt.Sprintf("%d-%d", iv.Lo, iv.Hi)
}
