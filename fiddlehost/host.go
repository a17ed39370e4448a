// Package fiddlehost is the set of callbacks a generated meta-program calls
// to produce output. It is registered with the embedded interpreter as a
// synthetic importable package (see interp.go's use of interp.Exports); it is
// never imported by ordinary Go build tooling, only by interpreted programs.
//
// Because yaegi's interp.Exports binds a fixed table of reflect.Values once,
// there is no way to hand each interpreted Generate call its own closure over
// a fresh buffer. Instead fiddlehost keeps a single package-level "current
// sink" that the driver swaps in immediately before invoking Generate, and
// swaps again (saving/restoring) around every Quote call. This is safe only
// because exactly one meta-program runs at a time; fiddlehost is not safe for
// concurrent use.
package fiddlehost

import (
	"fmt"

	"github.com/tangent-vector/fiddle/checks"
)

// Sink is anything a meta-program's output can be written to.
type Sink interface {
	WriteString(s string)
}

var current Sink

// Use installs sink as the destination for Raw, Splice, and Quote until the
// next call to Use. It returns the previously installed sink so callers can
// restore it.
func Use(sink Sink) Sink {
	prev := current
	current = sink
	return prev
}

// Raw writes v's string form to the current sink verbatim, with no escaping.
// It is the target of the line-style dialect's literal-text nodes and of the
// fiddle_write alias.
func Raw(v any) {
	current.WriteString(stringify(v))
}

// Splice writes v's string form to the current sink. It is the target of
// both dialects' inline expression escapes ("${...}" and "$(...)"). Raw and
// Splice have the same effect; the two names exist so template authors can
// hook or override them separately, and so emitted programs read the same
// way the source templates do.
func Splice(v any) {
	current.WriteString(stringify(v))
}

// stringBuilderSink collects output in memory; Quote uses one to capture a
// nested block's output as a string instead of writing it straight through.
type stringBuilderSink struct {
	text string
}

func (s *stringBuilderSink) WriteString(str string) { s.text += str }

// Quote runs f with a fresh sink installed, then restores the previous sink
// and returns everything f wrote as a string. This is the delimited
// dialect's "`(...)"/"`{...}" quoting form: unlike Splice, which writes
// straight through, Quote lets meta-code capture generated text and treat it
// as an ordinary Go value (pass it to a helper, check its length, and so on)
// before deciding whether, or how, to emit it.
func Quote(f func()) string {
	sink := &stringBuilderSink{}
	prev := Use(sink)
	defer Use(prev)
	f()
	return sink.text
}

// FiddleWrite is the line-style dialect's conventional alias for Raw.
// Generated programs bind their top-level "fiddle_write" name to Raw
// directly; FiddleWrite is the same function under an exported Go name.
var FiddleWrite = Raw

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Diagnostics accumulates non-fatal check-failure messages while a generated
// program runs; the driver resets it before each file's program runs and
// copies its messages out afterwards.
var Diagnostics []string

// readable is implemented by sinks that can report everything written to
// them so far, which the check helpers need to inspect generated output.
type readable interface {
	String() string
}

func currentText() string {
	if r, ok := current.(readable); ok {
		return r.String()
	}
	return ""
}

// CheckJSON runs [checks.JSON] against the output accumulated in the
// current sink so far, recording any failure message to Diagnostics. It
// never aborts the meta-program: checks are diagnostic only.
func CheckJSON(argLine string) {
	if msg := checks.JSON(argLine, currentText()); msg != "" {
		Diagnostics = append(Diagnostics, msg)
	}
}

// CheckHTML runs [checks.HTML] against the output accumulated so far.
func CheckHTML(argLine string) {
	if msg := checks.HTML(argLine, currentText()); msg != "" {
		Diagnostics = append(Diagnostics, msg)
	}
}

// CheckText runs [checks.Text] with got set to the output accumulated so
// far.
func CheckText(what, op, want string) {
	if msg, _ := checks.Text(what, op, currentText(), want); msg != "" {
		Diagnostics = append(Diagnostics, msg)
	}
}
