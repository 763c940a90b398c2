// Package sink defines the two external interfaces the core hands its
// results and errors to, plus the CLI's default implementations of
// both: a human-readable printer and a JSON emitter for dup groups, and
// a stderr error reporter.
//
// The core (walker, comparator, orchestrator) never formats output
// itself; it only calls these interfaces, so a caller embedding the
// core into something other than a CLI can supply its own.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blockdup/blockdup/internal/comparator"
)

// DupSink receives one confirmed duplicate group at a time, in whatever
// order the orchestrator discovers them.
type DupSink interface {
	Dup(group comparator.Group)
}

// ErrSink receives one non-fatal error report at a time. path identifies
// the file or directory the error is about; reason is a short
// human-readable description.
type ErrSink interface {
	Err(path, reason string)
}

// escapePath escapes control characters that would otherwise corrupt
// line-oriented terminal output.
func escapePath(path string) string {
	r := strings.NewReplacer(
		"\t", "\\t",
		"\n", "\\n",
		"\r", "\\r",
	)
	return r.Replace(path)
}

// TextDupSink writes each duplicate group to w as a blank-line-separated
// block of paths, the format a shell pipeline (xargs, sort, etc.) can
// consume directly.
type TextDupSink struct {
	w     io.Writer
	first bool
}

// NewTextDupSink creates a TextDupSink writing to w.
func NewTextDupSink(w io.Writer) *TextDupSink {
	return &TextDupSink{w: w, first: true}
}

func (s *TextDupSink) Dup(group comparator.Group) {
	if !s.first {
		fmt.Fprintln(s.w)
	}
	s.first = false
	for _, f := range group.Files {
		fmt.Fprintln(s.w, escapePath(f.FullPath()))
	}
}

// jsonGroup is the wire shape for JSONDupSink's NDJSON output: one
// object per line, so a consumer can start processing before the scan
// finishes.
type jsonGroup struct {
	Size  int64    `json:"size"`
	Paths []string `json:"paths"`
}

// JSONDupSink writes each duplicate group to w as one newline-delimited
// JSON object.
type JSONDupSink struct {
	enc *json.Encoder
}

// NewJSONDupSink creates a JSONDupSink writing to w.
func NewJSONDupSink(w io.Writer) *JSONDupSink {
	return &JSONDupSink{enc: json.NewEncoder(w)}
}

func (s *JSONDupSink) Dup(group comparator.Group) {
	g := jsonGroup{Size: group.Size, Paths: make([]string, 0, len(group.Files))}
	for _, f := range group.Files {
		g.Paths = append(g.Paths, f.FullPath())
	}
	_ = s.enc.Encode(g)
}

// TextErrSink writes each error report to w, clearing the current
// progress-bar line first so the two don't visually collide.
type TextErrSink struct {
	w           io.Writer
	clearLineFn func()
}

// NewTextErrSink creates a TextErrSink writing to w. clearLine, if
// non-nil, is called before each write to erase an in-progress progress
// bar line.
func NewTextErrSink(w io.Writer, clearLine func()) *TextErrSink {
	return &TextErrSink{w: w, clearLineFn: clearLine}
}

func (s *TextErrSink) Err(path, reason string) {
	if s.clearLineFn != nil {
		s.clearLineFn()
	}
	fmt.Fprintf(s.w, "error: %s: %s\n", escapePath(path), reason)
}

// jsonErr is the wire shape for JSONErrSink's NDJSON output.
type jsonErr struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// JSONErrSink writes each error report to w as one newline-delimited
// JSON object.
type JSONErrSink struct {
	enc *json.Encoder
}

// NewJSONErrSink creates a JSONErrSink writing to w.
func NewJSONErrSink(w io.Writer) *JSONErrSink {
	return &JSONErrSink{enc: json.NewEncoder(w)}
}

func (s *JSONErrSink) Err(path, reason string) {
	_ = s.enc.Encode(jsonErr{Path: path, Error: reason})
}
