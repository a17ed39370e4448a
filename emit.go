package fiddle

import (
	"strconv"
	"strings"
)

// emit.go translates parsed chunk sequences into the source text of a Go
// meta-program: a single file with a "func Generate()" whose body, when run,
// reproduces the chunk's literal text and evaluates its meta-code, writing
// everything to whatever sink fiddlehost.Use installed. Go's backtick raw
// string form cannot contain a backtick, so every literal run becomes an
// ordinary double-quoted string literal via strconv.Quote.

const programPrologue = "package main\n\nimport \"fiddlehost\"\n\nvar fiddle_write = fiddlehost.Raw\n\nfunc Generate() {\n"
const programEpilogue = "}\n"

// EmitLineProgram assembles the full generated-program source for a file
// framed with [FrameLineChunks].
func EmitLineProgram(chunks []*Chunk, src []byte) string {
	var b programBuilder
	b.writeString(programPrologue)
	for _, chunk := range chunks {
		emitChunkPrefix(&b, src, chunk)
		if chunk.Nodes != nil {
			emitLineTemplate(&b, src, chunk.Nodes)
		}
		emitRawComment(&b, src, span{chunk.Code.end, chunk.Prefix.end})
		emitRawComment(&b, src, chunk.Output)
	}
	b.writeString(programEpilogue)
	return b.String()
}

// EmitSkubProgram assembles the full generated-program source for a file
// framed with [FrameSkubChunks].
func EmitSkubProgram(chunks []*Chunk, src []byte) string {
	var b programBuilder
	b.writeString(programPrologue)
	for _, chunk := range chunks {
		emitChunkPrefix(&b, src, chunk)
		if chunk.Skub != nil {
			emitSkubText(&b, chunk.SkubSrc, chunk.Skub)
		}
		emitRawComment(&b, src, span{chunk.Code.end, chunk.Prefix.end})
		emitRawComment(&b, src, chunk.Output)
	}
	b.writeString(programEpilogue)
	return b.String()
}

// EmitFiddleProgram assembles the generated-program source for a whole-file
// ".fiddle" template (see processFiddle in dialect.go): no chunk framing and
// no preserved tag/output comments, since a ".fiddle" file has no surrounding
// host-source structure to keep stable across runs — just the parsed node
// sequence for the entire input.
func EmitFiddleProgram(nodes []*Node, src []byte) string {
	var b programBuilder
	b.writeString(programPrologue)
	emitLineTemplate(&b, src, nodes)
	b.writeString(programEpilogue)
	return b.String()
}

// emitChunkPrefix emits the chunk's leading literal text through the open-tag
// line as one literal, then the meta-code region and close-tag line broken at
// line boundaries.
func emitChunkPrefix(b *programBuilder, src []byte, chunk *Chunk) {
	emitRawLiteral(b, src, span{chunk.Prefix.begin, chunk.Code.begin})
	emitRawLiteralBroken(b, src, span{chunk.Code.begin, chunk.Prefix.end})
}

// emitRawLiteral emits one literal span as a single fiddlehost.Raw call. A
// quoted Go string literal preserves a leading newline, so spans that begin
// on one need no special casing.
func emitRawLiteral(b *programBuilder, src []byte, s span) {
	if s.empty() {
		return
	}
	b.writeString("fiddlehost.Raw(")
	b.writeString(strconv.Quote(s.text(src)))
	b.writeString(")\n")
}

// emitRawLiteralBroken emits a literal span line by line, inserting an
// explicit Raw("\n") at every terminator instead of folding the whole span
// into one string literal.
func emitRawLiteralBroken(b *programBuilder, src []byte, s span) {
	if s.empty() {
		return
	}
	cursor := s.begin
	for cursor != s.end {
		line, next := readLine(src, cursor, s.end)
		if !line.empty() {
			b.writeString("fiddlehost.Raw(")
			b.writeString(strconv.Quote(line.text(src)))
			b.writeString(")\n")
		}
		if next > line.end {
			b.writeString("fiddlehost.Raw(\"\\n\")\n")
		}
		cursor = next
	}
}

// emitRawComment writes s as line comments, used to preserve the original
// tag line and the previous generated-output text for human inspection of
// dump.go. Go has no block-comment form safe against arbitrary body text
// (an embedded "*/" would break it), so each line is commented individually.
func emitRawComment(b *programBuilder, src []byte, s span) {
	if s.empty() {
		return
	}
	cursor := s.begin
	for cursor != s.end {
		line, next := readLine(src, cursor, s.end)
		b.writeString("// ")
		b.writeBytes(line.slice(src))
		b.writeString("\n")
		cursor = next
	}
}

// emitLineTemplate emits the line-style dialect's node sequence.
func emitLineTemplate(b *programBuilder, src []byte, nodes []*Node) {
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			emitRawLiteral(b, src, n.Text)
		case KindTextAndNewline:
			emitRawLiteral(b, src, n.Text)
			b.writeString("fiddlehost.Raw(\"\\n\")\n")
		case KindEscape:
			if call, ok := checkEscapeCall(n.Text.text(src)); ok {
				b.writeString(call)
				b.writeString("\n")
				break
			}
			b.writeBytes(n.Text.slice(src))
			b.writeString("\n")
		case KindEscapeExpr:
			b.writeString("fiddlehost.Splice(")
			emitLineSpliceExpr(b, src, n.Children)
			b.writeString(")\n")
		}
	}
}

// emitLineSpliceExpr reproduces the literal expression source carried by an
// EscapeExpr node's children, verbatim (these children are always Text/
// TextAndNewline; a splice source never spans a meta-code escape).
func emitLineSpliceExpr(b *programBuilder, src []byte, children []*Node) {
	for _, n := range children {
		b.writeBytes(n.Text.slice(src))
		if n.Kind == KindTextAndNewline {
			b.writeString("\n")
		}
	}
}

// emitSkubText emits node's body as literal output text interspersed with
// "$"-escapes, the delimited dialect's top-level (and quote-stmt) emission
// mode.
func emitSkubText(b *programBuilder, src []byte, node *SkubNode) {
	cursor := node.Body.begin
	for _, child := range node.Children {
		emitRawLiteral(b, src, span{cursor, child.Text.begin})
		emitSkubEscape(b, src, child)
		cursor = child.Text.end
	}
	emitRawLiteral(b, src, span{cursor, node.Body.end})
}

// emitSkubEscape emits a "$"-rooted child node: an expression splice or a
// verbatim statement block, each of which may itself contain nested
// "`"-rooted quote children that transition back into literal text.
func emitSkubEscape(b *programBuilder, src []byte, node *SkubNode) {
	switch node.Form {
	case FormExpr:
		b.writeString("fiddlehost.Splice(")
		emitSkubCode(b, src, node, true)
		b.writeString(")\n")
	case FormStmt:
		emitSkubCode(b, src, node, false)
	}
}

// emitSkubCode emits node's body as literal meta-code text (copied verbatim,
// not as a Go string literal), interspersed with "`"-rooted quote children.
// exprContext records whether this meta-code sits in expression position (the
// body of a "$(...)" splice), where any embedded quote must produce a value.
func emitSkubCode(b *programBuilder, src []byte, node *SkubNode, exprContext bool) {
	cursor := node.Body.begin
	for _, child := range node.Children {
		b.writeBytes(span{cursor, child.Text.begin}.slice(src))
		emitSkubQuote(b, src, child, exprContext)
		cursor = child.Text.end
	}
	b.writeBytes(span{cursor, node.Body.end}.slice(src))
}

// checkEscapeCall recognizes a "%check json ..." / "%check html ..." /
// "%check text op want" escape body and translates it into a call against
// the checks package, reusing the sink's accumulated output as the value
// under test. It reports ok=false for any escape body that isn't a
// recognized check form, leaving it to be emitted as ordinary meta-code.
func checkEscapeCall(body string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(body), "check")
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	kind, rest, _ := strings.Cut(rest, " ")
	rest = strings.TrimSpace(rest)

	switch kind {
	case "json":
		return "fiddlehost.CheckJSON(" + strconv.Quote(rest) + ")", true
	case "html":
		return "fiddlehost.CheckHTML(" + strconv.Quote(rest) + ")", true
	case "text":
		op, want, _ := strings.Cut(rest, " ")
		want = strings.TrimSpace(want)
		return "fiddlehost.CheckText(" + strconv.Quote("output") + ", " + strconv.Quote(op) + ", " + strconv.Quote(want) + ")", true
	default:
		return "", false
	}
}

// emitSkubQuote emits a "`"-rooted child node: an expression form captures
// its nested literal-text body as a string via fiddlehost.Quote, as does any
// quote appearing inside a "$(...)" expression splice, where only a value can
// stand. A statement form in statement position is emitted inline with no
// wrapper, letting it act as a control-flow block (if/for/...) around more
// literal template text in the surrounding meta-code.
func emitSkubQuote(b *programBuilder, src []byte, node *SkubNode, exprContext bool) {
	if node.Form == FormExpr || exprContext {
		b.writeString("fiddlehost.Quote(func() {\n")
		emitSkubText(b, src, node)
		b.writeString("})")
		return
	}
	emitSkubText(b, src, node)
}
