package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrFileNotFound  = errors.New("config file not found")
	ErrUnknownFormat = errors.New("unknown config format")
	ErrNotObject     = errors.New("config root is not an object")
	ErrWatcherClosed = errors.New("watcher is closed")
)

// ParseError reports a document that could not be decoded by its format's
// parser. It prints as source:line:col when the position is known.
type ParseError struct {
	Source string
	Format string
	Line   int
	Column int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.Line))
		if e.Column > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(e.Column))
		}
	}
	fmt.Fprintf(&b, ": invalid %s: %s", e.Format, e.Reason)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(source, format string, err error) *ParseError {
	return &ParseError{Source: source, Format: format, Reason: err.Error(), Err: err}
}
