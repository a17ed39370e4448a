package fiddle

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tangent-vector/fiddle/fiddlehost"
)

// errLiterateNotImplemented is reported, as a recoverable per-file error, for
// ".md" inputs: literate mode is a reserved suffix, not an implemented dialect.
var errLiterateNotImplemented = errors.New("fiddle: literate (.md) input is not implemented")

// Dispatcher selects a dialect by file suffix, drives that dialect's framer,
// parser, and emitter, and runs the result through the one Engine shared
// across every file in a run.
type Dispatcher struct {
	Engine *Engine

	// OutputOverride forces every file's output to this path instead of the
	// suffix-derived default; set from the CLI's "-o" flag. With several
	// inputs, each file's output overwrites the previous one's.
	OutputOverride string

	// errorCount tallies recoverable (per-file) errors for diagnostics only;
	// it never changes the process exit code.
	errorCount int

	// Diagnostics accumulates non-fatal check-failure messages from templates,
	// printed by the caller after all files are processed.
	Diagnostics []string
}

// ErrorCount reports how many recoverable errors this Dispatcher has seen.
func (d *Dispatcher) ErrorCount() int { return d.errorCount }

// ProcessFile slurps path, frames+parses+emits it according to its suffix,
// runs the result, and writes the output file. I/O failures and parse
// failures are recoverable: they are logged to stderr, counted, and the
// function returns nil so the caller continues to the next file.
// Interpreter load/runtime failures are fatal and returned as-is.
func (d *Dispatcher) ProcessFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		d.recoverable("%s: %v", path, err)
		return nil
	}

	switch {
	case strings.HasSuffix(path, ".md"):
		d.recoverable("%s: %v", path, errLiterateNotImplemented)
		return nil

	case strings.HasSuffix(path, ".fiddle"):
		return d.processFiddle(path, src)

	case strings.HasSuffix(path, ".skub"):
		return d.processSkub(path, src)

	default:
		return d.processLine(path, src)
	}
}

// processFiddle handles the ".fiddle" suffix: unlike embedded-template host
// sources, a ".fiddle" file's entire content is the meta-code region, so
// there is no chunk framing to do. An empty input produces no output file at
// all; the default output path is the input path with the ".fiddle" suffix
// stripped.
func (d *Dispatcher) processFiddle(path string, src []byte) error {
	if len(src) == 0 {
		return nil
	}

	nodes, err := ParseLineTemplate(src, span{0, len(src)}, 0)
	if err != nil {
		d.recoverable("%s: %s", path, err)
		return nil
	}

	program := EmitFiddleProgram(nodes, src)
	return d.run(path, strings.TrimSuffix(path, ".fiddle"), program)
}

func (d *Dispatcher) processLine(path string, src []byte) error {
	chunks, err := FrameLineChunks(src, path)
	if err != nil {
		d.recoverable("%s", err)
		return nil
	}
	if chunks == nil {
		return nil
	}

	program := EmitLineProgram(chunks, src)
	return d.run(path, path, program)
}

func (d *Dispatcher) processSkub(path string, src []byte) error {
	chunks, warnings, err := FrameSkubChunks(src, path)
	if err != nil {
		d.recoverable("%s", err)
		return nil
	}
	// A *DelimiterWarning is an EOF truncation: the tree is still
	// well-formed and safe to emit. A *ParseError (e.g. a malformed escape
	// sigil) is structural, so the file is skipped like any other parse
	// failure.
	structural := false
	for _, w := range warnings {
		d.recoverable("%s: %s", path, w)
		if _, ok := w.(*ParseError); ok {
			structural = true
		}
	}
	if chunks == nil || structural {
		return nil
	}

	program := EmitSkubProgram(chunks, src)
	return d.run(path, strings.TrimSuffix(path, ".skub"), program)
}

func (d *Dispatcher) run(path, defaultOutPath, program string) error {
	if err := dumpProgram(program); err != nil {
		d.recoverable("%s: writing dump.go: %v", path, err)
	}

	sink := &outputSink{}
	fiddlehost.Diagnostics = nil
	if err := d.Engine.Run(program, sink); err != nil {
		return err
	}
	for _, msg := range fiddlehost.Diagnostics {
		d.Diagnostics = append(d.Diagnostics, fmt.Sprintf("%s: %s", path, msg))
	}

	outPath := defaultOutPath
	if d.OutputOverride != "" {
		outPath = d.OutputOverride
	}
	if err := os.WriteFile(outPath, sink.Bytes(), 0o644); err != nil {
		d.recoverable("%s: writing %s: %v", path, outPath, err)
	}
	return nil
}

func (d *Dispatcher) recoverable(format string, args ...any) {
	d.errorCount++
	fmt.Fprintf(os.Stderr, "fiddle: "+format+"\n", args...)
}
