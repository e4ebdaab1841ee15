package parser

import "fmt"

// ParseError reports a malformed YAML document at a specific line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: line %d: %s", e.Line, e.Reason)
}
