package configapi

import "strings"

// Builder provides a fluent API for constructing a canonical internal document in code.
// Re-adding a field name replaces the earlier value in place.
type Builder struct {
	name   string
	fields []builderField
}

type builderField struct {
	name    string
	kind    FieldKind
	value   literal
	tag     string
	items   []literal
	entries []Entry
	child   *Builder
	raw     string
}

// NewBuilder creates an empty builder whose root is named after the config type.
func NewBuilder(typeName string) *Builder {
	return &Builder{name: typeName}
}

// Value sets a scalar field.
func (b *Builder) Value(name, text string) *Builder {
	return b.put(builderField{name: name, kind: KindScalar, value: literal{Text: text}})
}

// Null sets a nil-marked field.
func (b *Builder) Null(name string) *Builder {
	return b.put(builderField{name: name, kind: KindScalar, value: literal{Null: true}})
}

// List sets a collection of scalar items wrapped in one element; tag names each item.
func (b *Builder) List(name, tag string, items ...string) *Builder {
	lits := make([]literal, len(items))
	for i, it := range items {
		lits[i] = literal{Text: it}
	}
	return b.put(builderField{name: name, kind: KindList, tag: tag, items: lits})
}

// Dictionary sets an ordered key/value collection.
func (b *Builder) Dictionary(name string, entries ...Entry) *Builder {
	return b.put(builderField{name: name, kind: KindDictionary, entries: entries})
}

// Object nests another builder's fields under name.
func (b *Builder) Object(name string, child *Builder) *Builder {
	if child == nil {
		child = NewBuilder(name)
	}
	return b.put(builderField{name: name, kind: KindObject, child: child})
}

// Raw inserts a pre-rendered block verbatim.
func (b *Builder) Raw(name, raw string) *Builder {
	return b.put(builderField{name: name, kind: KindOpaque, raw: strings.TrimSpace(raw)})
}

// Fields renders each field as a root-level child block.
func (b *Builder) Fields() []Field {
	return b.render(1)
}

// Document returns the built document.
func (b *Builder) Document() Document {
	return Document{Root: b.name, Fields: b.Fields()}
}

// String renders the full canonical text.
func (b *Builder) String() string {
	return BuildElements(b.name, b.Fields())
}

func (b *Builder) put(f builderField) *Builder {
	for i := range b.fields {
		if b.fields[i].name == f.name {
			b.fields[i] = f
			return b
		}
	}
	b.fields = append(b.fields, f)
	return b
}

// object returns the nested builder for name, creating it when missing or when the
// field currently holds another shape.
func (b *Builder) object(name string) *Builder {
	for _, f := range b.fields {
		if f.name == name && f.kind == KindObject {
			return f.child
		}
	}
	child := NewBuilder(name)
	b.put(builderField{name: name, kind: KindObject, child: child})
	return child
}

func (b *Builder) render(depth int) []Field {
	out := make([]Field, 0, len(b.fields))
	for _, f := range b.fields {
		var raw string
		switch f.kind {
		case KindScalar:
			raw = renderLiteral(f.name, f.value)
		case KindList:
			raw = renderList(f.name, f.tag, f.items, depth)
		case KindDictionary:
			raw = renderDictionary(f.name, [3]string{}, f.entries, depth)
		case KindObject:
			children := f.child.render(depth + 1)
			raws := make([]string, len(children))
			for i, c := range children {
				raws[i] = c.Raw
			}
			raw = renderContainer(f.name, raws, depth)
		default:
			raw = f.raw
		}
		out = append(out, Field{Name: f.name, Raw: raw})
	}
	return out
}

func indent(depth int) string {
	return strings.Repeat(indentUnit, depth)
}

// renderContainer lays children out one per line, indented one level deeper than
// the element itself. depth is the element's own nesting level below the root.
func renderContainer(name string, children []string, depth int) string {
	if len(children) == 0 {
		return "<" + name + " />"
	}
	var b strings.Builder
	b.WriteString("<" + name + ">\n")
	inner := indent(depth + 1)
	for _, c := range children {
		b.WriteString(inner)
		b.WriteString(strings.TrimSpace(c))
		b.WriteString("\n")
	}
	b.WriteString(indent(depth))
	b.WriteString("</" + name + ">")
	return b.String()
}

func renderLiteral(name string, l literal) string {
	if l.Null {
		return "<" + name + ` xsi:nil="true" />`
	}
	if l.Text == "" {
		return "<" + name + " />"
	}
	return "<" + name + ">" + escapeText(l.Text) + "</" + name + ">"
}

func renderList(name, tag string, items []literal, depth int) string {
	if tag == "" {
		tag = "string"
	}
	children := make([]string, len(items))
	for i, it := range items {
		children[i] = renderLiteral(tag, it)
	}
	return renderContainer(name, children, depth)
}

// renderDictionary writes entries as item/Key/Value triples; tags overrides the
// element names when set.
func renderDictionary(name string, tags [3]string, entries []Entry, depth int) string {
	item, key, value := defaultItemTag, defaultKeyTag, defaultValueTag
	if tags[0] != "" {
		item, key, value = tags[0], tags[1], tags[2]
	}
	children := make([]string, len(entries))
	for i, e := range entries {
		children[i] = renderContainer(item, []string{
			renderLiteral(key, literal{Text: e.Key}),
			renderLiteral(value, literal{Text: e.Value, Null: e.Nil}),
		}, depth+1)
	}
	return renderContainer(name, children, depth)
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText escapes character data the way the serializer does: quotes and
// newlines stay literal.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}
