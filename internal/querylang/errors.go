package querylang

import "fmt"

// ParseError reports malformed query text. Position is the byte offset of the
// offending token in the original input.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

func errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Position: pos, Message: fmt.Sprintf(format, args...)}
}
