package repair

import "strings"

// scanState is the lexical state of the string-aware JSON scanner.
type scanState int

const (
	stateNormal   scanState = iota // outside any string literal
	stateInString                  // inside a double-quoted string
	stateEscaped                   // the previous byte was a backslash inside a string
)

// scanner tracks whether a byte position sits inside a JSON string literal.
// Bytes inside strings are opaque to delimiter matching.
type scanner struct {
	state scanState
}

// step advances the scanner over c and reports whether c is structural, i.e.
// outside any string literal and not itself a quote.
func (s *scanner) step(c byte) bool {
	switch s.state {
	case stateEscaped:
		s.state = stateInString
		return false
	case stateInString:
		switch c {
		case '\\':
			s.state = stateEscaped
		case '"':
			s.state = stateNormal
		}
		return false
	default:
		if c == '"' {
			s.state = stateInString
			return false
		}
		return true
	}
}

// span locates the first top-level JSON value in text. It picks the earliest
// '{' or '[' and walks forward counting only that delimiter pair, ignoring
// anything inside string literals. It returns the inclusive start and
// exclusive end offsets.
func span(text string) (start, end int, err error) {
	start = strings.IndexAny(text, "{[")
	if start < 0 {
		return 0, 0, &NoJSONFoundError{Reason: "no opening delimiter", Text: text}
	}

	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	var sc scanner
	depth := 0
	for i := start; i < len(text); i++ {
		c := text[i]
		if !sc.step(c) {
			continue
		}
		switch c {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return start, i + 1, nil
			}
		}
	}
	return 0, 0, &NoJSONFoundError{Reason: "unbalanced delimiters", Text: text}
}
