package configapi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// XMLDeclaration is the header line written by BuildElements.
	XMLDeclaration = `<?xml version="1.0" encoding="utf-16"?>`
	// XSDNamespace and XSINamespace are the fixed namespace attributes on every root.
	XSDNamespace = "http://www.w3.org/2001/XMLSchema"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	indentUnit = "  "
)

// Field is one immediate child of a document root. Raw holds the child's full
// sub-tree exactly as it appeared in the source, tag and markers included.
type Field struct {
	Name string
	Raw  string
}

// Document is a root name plus its ordered children. Children below depth one are
// kept as raw text and only parsed on demand.
type Document struct {
	Root   string
	Fields []Field
}

// Lookup returns the raw block for the named child.
func (d Document) Lookup(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Raw, true
		}
	}
	return "", false
}

// Names returns child names in document order.
func (d Document) Names() []string {
	out := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Len reports the number of children.
func (d Document) Len() int { return len(d.Fields) }

// String rebuilds canonical text for the document.
func (d Document) String() string { return BuildElements(d.Root, d.Fields) }

func (d Document) index() map[string]string {
	m := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Name] = f.Raw
	}
	return m
}

// ParseElements splits text into its root name and immediate children. It never
// fails: malformed input yields no children and whatever root name was read.
func ParseElements(text string) Document {
	el, err := scanElement(text)
	if err != nil {
		return Document{Root: el.Name}
	}
	return Document{Root: el.Name, Fields: el.Children}
}

// ParseElementsStrict is ParseElements with the parse error reported.
func ParseElementsStrict(text string) (Document, error) {
	el, err := scanElement(text)
	if err != nil {
		return Document{Root: el.Name}, err
	}
	return Document{Root: el.Name, Fields: el.Children}, nil
}

// BuildElements writes the declaration, the root with its namespace attributes and
// each child block on its own line. Blocks are shifted to one indent level below the
// root but otherwise emitted verbatim, so BuildElements(ParseElements(BuildElements(...)))
// reproduces its input.
func BuildElements(root string, fields []Field) string {
	var b strings.Builder
	b.WriteString(XMLDeclaration)
	b.WriteString("\n<")
	b.WriteString(root)
	b.WriteString(` xmlns:xsd="`)
	b.WriteString(XSDNamespace)
	b.WriteString(`" xmlns:xsi="`)
	b.WriteString(XSINamespace)
	b.WriteString(`"`)
	if len(fields) == 0 {
		b.WriteString(" />")
		return b.String()
	}
	b.WriteString(">\n")
	for _, f := range fields {
		raw := strings.TrimSpace(f.Raw)
		if raw == "" {
			raw = "<" + f.Name + " />"
		}
		b.WriteString(indentUnit)
		b.WriteString(reindent(raw))
		b.WriteString("\n")
	}
	b.WriteString("</")
	b.WriteString(root)
	b.WriteString(">")
	return b.String()
}

// reindent moves the continuation lines of a block so its closing line sits at one
// indent level. The closing line's leading whitespace is taken as the block's original
// offset; lines not starting with it, such as multi-line text, are left alone, and a
// block whose closing line is not indented is emitted as is.
func reindent(raw string) string {
	i := strings.LastIndexByte(raw, '\n')
	if i < 0 {
		return raw
	}
	last := raw[i+1:]
	base := last[:len(last)-len(strings.TrimLeft(last, " \t"))]
	if base == "" || base == indentUnit {
		return raw
	}
	lines := strings.Split(raw, "\n")
	for n := 1; n < len(lines); n++ {
		if rest, ok := strings.CutPrefix(lines[n], base); ok {
			lines[n] = indentUnit + rest
		}
	}
	return strings.Join(lines, "\n")
}

// element is a single inspected block.
type element struct {
	Name     string
	Nil      bool    // carries xsi:nil="true"
	Text     string  // decoded character data directly under the element
	Children []Field // unique names, first position and last value win
	Items    []Field // every child in source order, duplicates included
}

func (e element) complex() bool { return len(e.Children) > 0 }

// inspect parses a raw block permissively.
func inspect(raw string) element {
	el, err := scanElement(raw)
	if err != nil {
		return element{Name: el.Name}
	}
	return el
}

// scanElement walks raw tokens once, cutting depth-one children out of text by
// byte offset so their formatting is never re-encoded.
func scanElement(text string) (element, error) {
	var el element
	if strings.TrimSpace(text) == "" {
		return el, &ConfigError{Type: ErrParse, Message: "parse elements: empty document"}
	}
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.CharsetReader = passthroughCharset

	var (
		stack      []string
		body       bytes.Buffer
		childName  string
		childStart int64
		closed     bool
	)
	seen := make(map[string]int)
	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return element{Name: el.Name}, wrapXMLError(err, "parse elements")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := qualifiedName(t.Name)
			switch len(stack) {
			case 0:
				if closed {
					return element{Name: el.Name}, &ConfigError{Type: ErrParse, Message: fmt.Sprintf("parse elements: second root <%s>", name)}
				}
				el.Name = name
				el.Nil = hasNilMarker(t.Attr)
			case 1:
				childName, childStart = name, offset
			}
			stack = append(stack, name)
		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return element{Name: el.Name}, &ConfigError{Type: ErrParse, Message: fmt.Sprintf("parse elements: unexpected </%s>", name)}
			}
			stack = stack[:len(stack)-1]
			switch len(stack) {
			case 0:
				closed = true
			case 1:
				raw := text[childStart:dec.InputOffset()]
				el.Items = append(el.Items, Field{Name: childName, Raw: raw})
				if i, ok := seen[childName]; ok {
					el.Children[i].Raw = raw
				} else {
					seen[childName] = len(el.Children)
					el.Children = append(el.Children, Field{Name: childName, Raw: raw})
				}
			}
		case xml.CharData:
			switch len(stack) {
			case 0:
				if len(bytes.TrimSpace(t)) > 0 {
					return element{Name: el.Name}, &ConfigError{Type: ErrParse, Message: "parse elements: text outside root element"}
				}
			case 1:
				body.Write(t)
			}
		}
	}
	if el.Name == "" {
		return el, &ConfigError{Type: ErrParse, Message: "parse elements: no root element"}
	}
	if !closed {
		return element{Name: el.Name}, &ConfigError{Type: ErrParse, Message: fmt.Sprintf("parse elements: unexpected EOF before </%s>", el.Name)}
	}
	el.Text = body.String()
	return el, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func hasNilMarker(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == "nil" && a.Name.Space != "" && strings.TrimSpace(a.Value) == "true" {
			return true
		}
	}
	return false
}

// passthroughCharset accepts the utf-16 declaration: input always arrives as a Go
// string, so the bytes are already UTF-8 whatever the header claims.
func passthroughCharset(_ string, r io.Reader) (io.Reader, error) {
	return r, nil
}

// validName reports whether name can be used as an element name.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r == '.' || r == ':' || r >= '0' && r <= '9'):
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}
