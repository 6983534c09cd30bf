// file: internals/console/result.go
package console

import (
	"fmt"
	"strings"
)

// Source tells where a query result came from.
type Source int

const (
	SourceNone Source = iota
	SourceLive
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceFallback:
		return "fallback"
	}
	return "none"
}

// FallbackPolicy decides what a failed read returns.
type FallbackPolicy int

const (
	// FailOpen substitutes the bundled fallback payload and keeps the error.
	FailOpen FallbackPolicy = iota
	// FailClosed returns the error with no data.
	FailClosed
)

// FetchError describes a failed call against the payments API. Status is 0
// for transport failures.
type FetchError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transport reports a failure before any HTTP status was received.
func (e *FetchError) Transport() bool { return e.Status == 0 }

// Result is a read query outcome. Data is the zero value only when Err is set
// under FailClosed.
type Result[T any] struct {
	Data   T
	Source Source
	Err    *FetchError
}

func (r Result[T]) OK() bool { return r.Err == nil }

func (r Result[T]) IsFallback() bool { return r.Source == SourceFallback }

func live[T any](v T) Result[T] {
	return Result[T]{Data: v, Source: SourceLive}
}
