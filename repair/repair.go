// Package repair turns free-form model replies into well-formed JSON values.
//
// Model output is not contractually well-formed: the JSON is often wrapped in
// prose or code fences, carries trailing commas or typographic quotes, and
// sometimes contains unescaped quotes or raw newlines inside string values.
// Repair applies an ordered series of cleanups and parse attempts; the first
// successful parse wins.
package repair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pass identifies which parse attempt produced a value.
type Pass int

const (
	// PassStrict parsed the extracted and normalized text as-is.
	PassStrict Pass = iota + 1
	// PassQuotes needed unescaped interior quotes to be escaped.
	PassQuotes
	// PassControl additionally needed raw CR/LF/TAB escaped inside strings.
	PassControl
)

func (p Pass) String() string {
	switch p {
	case PassStrict:
		return "strict"
	case PassQuotes:
		return "quotes"
	case PassControl:
		return "control"
	default:
		return "none"
	}
}

// Result is a successfully repaired value.
type Result struct {
	Value any    // decoded value (map[string]any or []any)
	Text  string // the exact JSON text that parsed
	Pass  Pass   // which attempt succeeded
}

var (
	fencePattern         = regexp.MustCompile("```[\\w+-]*")
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	)
)

// Repair extracts and parses the first JSON object or array in text.
//
// It fails with *NoJSONFoundError when no balanced object or array exists, and
// with *ExhaustedError when one exists but stays unparseable after every pass.
func Repair(text string) (Result, error) {
	// Already well-formed replies are returned untouched.
	if trimmed := strings.TrimSpace(text); startsValue(trimmed) {
		if v, err := parse(trimmed); err == nil {
			return Result{Value: v, Text: trimmed, Pass: PassStrict}, nil
		}
	}

	extracted, err := Extract(StripFences(text))
	if err != nil {
		return Result{}, err
	}
	if v, err := parse(extracted); err == nil {
		return Result{Value: v, Text: extracted, Pass: PassStrict}, nil
	}

	cleaned := NormalizeQuotes(RemoveTrailingCommas(extracted))
	v, firstErr := parse(cleaned)
	if firstErr == nil {
		return Result{Value: v, Text: cleaned, Pass: PassStrict}, nil
	}

	quoted := EscapeInteriorQuotes(cleaned)
	if v, err := parse(quoted); err == nil {
		return Result{Value: v, Text: quoted, Pass: PassQuotes}, nil
	}

	controlled := EscapeControlChars(quoted)
	if v, err := parse(controlled); err == nil {
		return Result{Value: v, Text: controlled, Pass: PassControl}, nil
	}

	return Result{}, &ExhaustedError{Cause: firstErr.Error(), Cleaned: controlled}
}

// Unmarshal repairs text and decodes the resulting JSON into v.
func Unmarshal(text string, v any) (Pass, error) {
	res, err := Repair(text)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(res.Text), v); err != nil {
		return res.Pass, err
	}
	return res.Pass, nil
}

// StripFences removes Markdown code-fence delimiters, with or without a
// language tag, leaving their contents in place.
func StripFences(text string) string {
	return fencePattern.ReplaceAllString(text, "")
}

// Extract returns the first top-level JSON object or array in text, discarding
// everything around it. Braces inside string literals do not affect matching.
func Extract(text string) (string, error) {
	start, end, err := span(text)
	if err != nil {
		return "", err
	}
	return text[start:end], nil
}

// RemoveTrailingCommas drops commas that directly precede a closing '}' or ']'.
func RemoveTrailingCommas(text string) string {
	return trailingCommaPattern.ReplaceAllString(text, "$1")
}

// NormalizeQuotes replaces typographic double and single quotes with ASCII.
func NormalizeQuotes(text string) string {
	return quoteReplacer.Replace(text)
}

// EscapeInteriorQuotes escapes double quotes that appear inside a string value
// without terminating it. A quote inside a string is treated as the terminator
// only when the next non-whitespace byte is one of , } ] : or the end of text.
func EscapeInteriorQuotes(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case !inString:
			if c == '"' {
				inString = true
			}
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			if terminatesString(text, i+1) {
				inString = false
			} else {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeControlChars rewrites raw carriage returns, newlines and tabs found
// inside string literals as their two-character escapes.
func EscapeControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	var sc scanner
	for i := 0; i < len(text); i++ {
		c := text[i]
		inside := sc.state == stateInString
		sc.step(c)
		if inside {
			switch c {
			case '\n':
				b.WriteString(`\n`)
				continue
			case '\r':
				b.WriteString(`\r`)
				continue
			case '\t':
				b.WriteString(`\t`)
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func terminatesString(text string, from int) bool {
	for j := from; j < len(text); j++ {
		switch text[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', '}', ']', ':':
			return true
		default:
			return false
		}
	}
	return true
}

func startsValue(s string) bool {
	return len(s) > 0 && (s[0] == '{' || s[0] == '[')
}

func parse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}
