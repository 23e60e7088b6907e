// Package diag is the core's warning/error message sink. It is deliberately
// narrow: unlike a compiler front-end it never renders colored terminal
// output or source snippets, it only collects structured messages and
// offers a minimal one-line default renderer for callers that want one.
package diag

import (
	"fmt"
	"io"
	"sync"

	"github.com/vellumjs/vellum/internal/errcode"
)

// Kind distinguishes a warning from a note attached to one.
type Kind uint8

const (
	Warning Kind = iota
	Note
)

// Msg is a single diagnostic: a warning or a note, with an optional code
// and position (no source ranges, no snippet text).
type Msg struct {
	Kind  Kind
	Code  errcode.Code
	Text  string
	Pos   *errcode.Pos
	Notes []string
}

// Sink receives warnings emitted through the Plugin Context's warn() and
// through the Option Normalizer's DEPRECATED_OPTIONS reporting.
type Sink interface {
	OnWarn(Msg)
}

// WriterSink is the default sink: one line per warning.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) OnWarn(m Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "(!) %s\n", m.Text)
	for _, note := range m.Notes {
		fmt.Fprintf(s.w, "    %s\n", note)
	}
}

// Collector accumulates warnings in memory, the way a build pipeline stage
// collects warnings to hand back to the caller alongside a result.
type Collector struct {
	mu   sync.Mutex
	msgs []Msg
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) OnWarn(m Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *Collector) Messages() []Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Msg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Tee fans a warning out to multiple sinks, e.g. a user-supplied onwarn plus
// an in-memory collector used by tests.
type Tee []Sink

func (t Tee) OnWarn(m Msg) {
	for _, s := range t {
		if s != nil {
			s.OnWarn(m)
		}
	}
}

// NormalizeWarning turns a plain string plugin warning into a structured Msg,
// per the Plugin Context's warn(warning, pos?) contract.
func NormalizeWarning(warning string, pos *errcode.Pos) Msg {
	return Msg{Kind: Warning, Text: warning, Pos: pos}
}

// DeprecatedOptionsWarning builds the DEPRECATED_OPTIONS warning the Option
// Normalizer reports when it rewrites renamed option pairs.
func DeprecatedOptionsWarning(pairs [][2]string) Msg {
	notes := make([]string, 0, len(pairs))
	for _, p := range pairs {
		notes = append(notes, fmt.Sprintf("%q is deprecated, use %q instead", p[0], p[1]))
	}
	return Msg{Kind: Warning, Code: errcode.DeprecatedOptions, Text: "deprecated options were used", Notes: notes}
}
