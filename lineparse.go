package fiddle

// NodeKind discriminates the four variants of the line-style template AST.
type NodeKind int

const (
	// KindText is a literal run with no trailing newline.
	KindText NodeKind = iota
	// KindTextAndNewline is a literal run whose logical line ended here.
	KindTextAndNewline
	// KindEscape is a full meta-code line (body is everything after the
	// leading "%").
	KindEscape
	// KindEscapeExpr is an inline "${...}" expression splice; its Children
	// are the Text nodes (TextAndNewline nodes for a splice that spans lines)
	// whose concatenation forms the expression source.
	KindEscapeExpr
)

// Node is one node of the line-style template AST. Nodes form an ordered
// sibling sequence; EscapeExpr nodes additionally own a sequence of Children
// whose concatenation is the spliced expression's source text.
type Node struct {
	Kind     NodeKind
	Text     span
	Children []*Node
}

type lineParseState int

const (
	stateDefault lineParseState = iota
	stateInExprEscape
)

// ParseLineTemplate parses the line-style meta-code region given by code
// (a span into src), stripping prefixLen bytes from the start of every line
// before scanning (this removes the host-comment indentation the chunk
// framer computed as linePrefix). It returns the parsed node sequence, or a
// *ParseError if an inline splice is still open when a "%" line or the end
// of code is reached. A splice may span lines: the rest of each line it
// covers joins its expression source.
func ParseLineTemplate(src []byte, code span, prefixLen int) ([]*Node, error) {
	var nodes []*Node
	var splice *Node

	state := stateDefault

	cursor := code.begin
	end := code.end
	for cursor != end {
		line, newCursor := readLine(src, cursor, end)
		cursor = newCursor
		line.begin += prefixLen

		if escapeBegin, ok := isEscapeLine(src, line); ok {
			switch state {
			case stateDefault:
				nodes = append(nodes, &Node{Kind: KindEscape, Text: span{escapeBegin, line.end}})
			case stateInExprEscape:
				return nil, &ParseError{Message: "unterminated escape"}
			}
			continue
		}

		cc := line.begin
		spanBegin := cc
		for cc != line.end {
			spanEnd := cc
			c := src[cc]
			cc++
			switch state {
			case stateDefault:
				if c == '$' && cc != line.end && src[cc] == '{' {
					cc++
					if spanBegin != spanEnd {
						nodes = append(nodes, &Node{Kind: KindText, Text: span{spanBegin, spanEnd}})
					}
					splice = &Node{Kind: KindEscapeExpr}
					nodes = append(nodes, splice)
					spanBegin = cc
					state = stateInExprEscape
				}
			case stateInExprEscape:
				if c == '}' {
					if spanBegin != spanEnd {
						splice.Children = append(splice.Children, &Node{Kind: KindText, Text: span{spanBegin, spanEnd}})
					}
					splice = nil
					spanBegin = cc
					state = stateDefault
				}
			}
		}
		tail := &Node{Kind: KindTextAndNewline, Text: span{spanBegin, line.end}}
		if state == stateInExprEscape {
			// A splice may span lines: the rest of this line joins the
			// expression source, newline included.
			splice.Children = append(splice.Children, tail)
		} else {
			nodes = append(nodes, tail)
		}
	}

	if state == stateInExprEscape {
		return nil, &ParseError{Message: "unterminated escape: \"${\" without matching \"}\""}
	}

	return nodes, nil
}

// isEscapeLine reports whether line (after skipping leading spaces/tabs)
// begins with "%", the line-style dialect's meta-code sigil. It returns the
// position just after the sigil.
func isEscapeLine(src []byte, line span) (bodyBegin int, ok bool) {
	cursor := line.begin
	for cursor != line.end {
		switch src[cursor] {
		case ' ', '\t':
			cursor++
			continue
		}
		break
	}
	if cursor == line.end {
		return 0, false
	}
	if src[cursor] == '%' {
		return cursor + 1, true
	}
	return 0, false
}
