package fiddle

// Chunk is one contiguous region of an embedded-template host source file:
// literal text to emit verbatim, followed by an optional meta-code region
// and the output region it last produced.
type Chunk struct {
	Prefix     span // bytes emitted verbatim: chunk start through the close-tag line, so it contains Code
	LinePrefix span // common indentation stripped before parsing Code
	Code       span // the meta-code body
	Output     span // the region previously occupied by generated output

	Nodes []*Node // parsed line-style template, nil if this chunk has none

	Skub    *SkubNode // parsed delimited-style template, nil for the line dialect
	SkubSrc []byte    // the chunk-local slice Skub's spans are offsets into
}

const (
	openTag  = "FIDDLE TEMPLATE"
	closeTag = "FIDDLE OUTPUT"
	endTag   = "FIDDLE END"
)

type frameState int

const (
	stateInitial frameState = iota
	stateDefaultChunk
	stateInTemplateCode
	stateInTemplateOutput
)

// FrameLineChunks splits a host-language source file into chunks using the
// line-style markers "FIDDLE TEMPLATE"/"FIDDLE OUTPUT"/"FIDDLE END". It
// returns nil, nil if the file contains no templates at all (the caller
// should then skip output generation for this file). The scan follows the
// state sequence Initial -> (InTemplateCode -> InTemplateOutput -> Default)*;
// any tag seen out of that order is an error.
func FrameLineChunks(src []byte, file string) ([]*Chunk, error) {
	var chunks []*Chunk
	state := stateInitial

	chunk := &Chunk{Prefix: span{0, 0}}
	chunks = append(chunks, chunk)

	cursor := 0
	end := len(src)
	lineNo := 0
	for cursor != end {
		lineNo++
		line, newCursor := readLine(src, cursor, end)
		cursor = newCursor

		if loc := findMatch(src, line.begin, line.end, openTag); loc >= 0 {
			switch state {
			case stateInitial, stateDefaultChunk:
				chunk.Code.begin = cursor
				chunk.LinePrefix = line
				state = stateInTemplateCode
			default:
				return nil, &ParseError{File: file, Line: lineNo, Message: "starting new template without ending previous one"}
			}
			continue
		}

		if loc := findMatch(src, line.begin, line.end, closeTag); loc >= 0 {
			switch state {
			case stateInTemplateCode:
				chunk.Code.end = line.begin
				chunk.Prefix.end = cursor
				chunk.Output.begin = cursor
				chunk.LinePrefix = commonPrefix(src, line, chunk.LinePrefix)
				state = stateInTemplateOutput
			default:
				return nil, &ParseError{File: file, Line: lineNo, Message: "'OUTPUT' tag without 'TEMPLATE'"}
			}
			continue
		}

		if loc := findMatch(src, line.begin, line.end, endTag); loc >= 0 {
			switch state {
			case stateInTemplateOutput:
				chunk.Output.end = line.begin

				prefixLen := chunk.LinePrefix.end - chunk.LinePrefix.begin
				nodes, err := ParseLineTemplate(src, chunk.Code, prefixLen)
				if err != nil {
					return nil, err
				}
				chunk.Nodes = nodes

				chunk = &Chunk{Prefix: span{line.begin, 0}}
				chunks = append(chunks, chunk)
				state = stateDefaultChunk
			case stateInTemplateCode:
				return nil, &ParseError{File: file, Line: lineNo, Message: "'END' tag without 'OUTPUT'"}
			default:
				return nil, &ParseError{File: file, Line: lineNo, Message: "'END' tag without 'TEMPLATE'"}
			}
			continue
		}

		if state == stateInTemplateCode {
			chunk.LinePrefix = commonPrefix(src, line, chunk.LinePrefix)
		}
	}

	if state == stateInitial {
		return nil, nil
	}

	chunk.Prefix.end = end
	chunk.Code = span{end, end}
	chunk.Output = span{end, end}
	chunk.Nodes = nil

	return chunks, nil
}

const (
	skubOpenTag = "[[[skub:"
	skubEndTag  = "[[[end]]]"
	skubClose   = "]]]"
)

// FrameSkubChunks splits a host source file into chunks using the delimited
// markers "[[[skub:" / "]]]" / "[[[end]]]". Unlike the line-style framer,
// there is no separate "code ends, output begins" marker: "]]]" alone closes
// the code region and opens the output region.
func FrameSkubChunks(src []byte, file string) (chunks []*Chunk, warnings []error, err error) {
	state := stateInitial

	chunk := &Chunk{Prefix: span{0, 0}}
	chunks = append(chunks, chunk)

	cursor := 0
	end := len(src)
	lineNo := 0
	for cursor != end {
		lineNo++
		line, newCursor := readLine(src, cursor, end)
		cursor = newCursor

		if loc := findMatch(src, line.begin, line.end, skubOpenTag); loc >= 0 {
			switch state {
			case stateInitial, stateDefaultChunk:
				chunk.Code.begin = cursor
				state = stateInTemplateCode
			default:
				return nil, nil, &ParseError{File: file, Line: lineNo, Message: "starting new skub block without ending previous one"}
			}
			continue
		}

		// skubEndTag ("[[[end]]]") must be checked before skubClose ("]]]"):
		// skubClose's pattern is a literal suffix of skubEndTag's, so an
		// end-tag line would otherwise always be misdetected as a bare
		// close tag first.
		if loc := findMatch(src, line.begin, line.end, skubEndTag); loc >= 0 {
			switch state {
			case stateInTemplateOutput:
				chunk.Output.end = line.begin

				chunk.SkubSrc = chunk.Code.slice(src)
				root, nodeWarnings := ParseSkub(chunk.SkubSrc)
				chunk.Skub = root
				warnings = append(warnings, nodeWarnings...)

				chunk = &Chunk{Prefix: span{line.begin, 0}}
				chunks = append(chunks, chunk)
				state = stateDefaultChunk
			default:
				return nil, nil, &ParseError{File: file, Line: lineNo, Message: "'[[[end]]]' without '[[[skub:'"}
			}
			continue
		}

		if loc := findMatch(src, line.begin, line.end, skubClose); loc >= 0 {
			switch state {
			case stateInTemplateCode:
				chunk.Code.end = line.begin
				chunk.Prefix.end = cursor
				chunk.Output.begin = cursor
				state = stateInTemplateOutput
			default:
				return nil, nil, &ParseError{File: file, Line: lineNo, Message: "']]]' without '[[[skub:'"}
			}
			continue
		}
	}

	if state == stateInitial {
		return nil, nil, nil
	}

	chunk.Prefix.end = end
	chunk.Code = span{end, end}
	chunk.Output = span{end, end}

	return chunks, warnings, nil
}
