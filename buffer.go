package fiddle

import (
	"bytes"

	"github.com/tangent-vector/fiddle/fiddlehost"
)

// programBuilder accumulates the generated meta-program's source text: a
// thin, named wrapper over bytes.Buffer.
type programBuilder struct {
	buf bytes.Buffer
}

// writeBytes appends raw bytes verbatim.
func (b *programBuilder) writeBytes(p []byte) {
	b.buf.Write(p)
}

// writeString appends a literal Go string verbatim (no quoting applied).
func (b *programBuilder) writeString(s string) {
	b.buf.WriteString(s)
}

// writeSpan appends the bytes of s within src.
func (b *programBuilder) writeSpan(src []byte, s span) {
	b.buf.Write(s.slice(src))
}

// String returns the accumulated program text.
func (b *programBuilder) String() string {
	return b.buf.String()
}

// outputSink is the fiddlehost.Sink a Dispatcher installs before running a
// file's generated program: a plain growable byte buffer that accumulates
// everything Raw/Splice/Quote write, to be flushed to the output path once
// Generate returns.
type outputSink struct {
	buf bytes.Buffer
}

func (s *outputSink) WriteString(str string) { s.buf.WriteString(str) }

func (s *outputSink) Bytes() []byte { return s.buf.Bytes() }

func (s *outputSink) String() string { return s.buf.String() }

var _ fiddlehost.Sink = (*outputSink)(nil)
