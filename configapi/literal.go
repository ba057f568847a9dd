package configapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

const nullToken = "null"

// literal is one decoded scalar from the flat format.
type literal struct {
	Text string
	Null bool
}

func (l literal) equal(o literal) bool {
	return l.Null == o.Null && (l.Null || l.Text == o.Text)
}

// formatLiteral renders text as a flat-format value: null, bare booleans and
// numbers, quoted strings otherwise.
func formatLiteral(text string, null bool) string {
	if null {
		return nullToken
	}
	if isBareToken(text) {
		return text
	}
	return quoteString(text)
}

// isBareToken reports whether text can be written unquoted and read back verbatim.
func isBareToken(text string) bool {
	switch text {
	case "true", "false":
		return true
	case "", nullToken:
		return false
	}
	if strings.ContainsAny(text, " \t\r\n,#[]\"'=") {
		return false
	}
	_, err := strconv.ParseFloat(text, 64)
	if err == nil {
		return true
	}
	// out-of-range numbers are still numbers
	var ne *strconv.NumError
	return errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange)
}

// quoteString writes a basic string: backslash and quote escaped, control
// characters as escapes, so the value stays on one line.
func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unquoteString decodes a quoted value. The TOML decoder handles the standard
// escapes; hand-edited strings it rejects go through a lenient fallback.
func unquoteString(s string) (string, error) {
	var holder struct {
		V string `toml:"v"`
	}
	if err := toml.Unmarshal([]byte("v = "+s), &holder); err == nil {
		return holder.V, nil
	}
	return lenientUnquote(s)
}

func lenientUnquote(s string) (string, error) {
	if len(s) < 2 {
		return "", &ConfigError{Type: ErrFormat, Message: fmt.Sprintf("unterminated string %s", s)}
	}
	quote := s[0]
	if s[len(s)-1] != quote {
		return "", &ConfigError{Type: ErrFormat, Message: fmt.Sprintf("unterminated string %s", s)}
	}
	body := s[1 : len(s)-1]
	if quote == '\'' {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i == len(body)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u', 'U':
			width := 4
			if body[i] == 'U' {
				width = 8
			}
			if i+1+width <= len(body) {
				if n, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32); err == nil && utf8.ValidRune(rune(n)) {
					b.WriteRune(rune(n))
					i += width
					continue
				}
			}
			b.WriteByte(body[i])
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// parseLiteral decodes one flat-format scalar value.
func parseLiteral(raw string) (literal, error) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return literal{}, &ConfigError{Type: ErrFormat, Message: "missing value"}
	case v == nullToken:
		return literal{Null: true}, nil
	case v[0] == '"' || v[0] == '\'':
		s, err := unquoteString(v)
		if err != nil {
			return literal{}, err
		}
		return literal{Text: s}, nil
	}
	return literal{Text: v}, nil
}

// parseList decodes "[a, b, c]".
func parseList(raw string) ([]literal, error) {
	v := strings.TrimSpace(raw)
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return nil, &ConfigError{Type: ErrFormat, Message: fmt.Sprintf("malformed list %s", v)}
	}
	var out []literal
	for _, part := range splitOutsideQuotes(v[1:len(v)-1], ',') {
		if strings.TrimSpace(part) == "" {
			continue
		}
		lit, err := parseLiteral(part)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

func formatList(items []literal) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = formatLiteral(it.Text, it.Null)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// indexOutsideQuotes returns the index of the first sep not inside a quoted
// string, or -1.
func indexOutsideQuotes(s string, sep byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == sep:
			return i
		}
	}
	return -1
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	for {
		i := indexOutsideQuotes(s, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}

// stripComment drops a trailing "# ..." that is not inside a quoted value.
func stripComment(s string) string {
	if i := indexOutsideQuotes(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}
