package configapi

import (
	"io"
	"log/slog"
	"strings"
)

// FlatConverter maps internal documents to a flat, commented, TOML-like text:
//
//	[MyConfig]
//	# shown in the terminal header
//	DisplayName = "Hello"
//	Limit = null
//
//	IntList.int = [5, 10, 15]
//
//	[MyConfig.NamedValues-dictionary]
//	"start" = 1
//
//	[MyConfig.Size]
//	Width = 3
//	[MyConfig.Size-end]
//
//	Enabled = true
//
// The defaults skeleton supplied by Oracle decides the shape of empty blocks on the
// way out and is the template every parsed value is substituted into on the way in.
type FlatConverter struct {
	Oracle Oracle
	// Logger receives skipped lines and fallbacks. Nil discards.
	Logger *slog.Logger
	// DescriptionFormat controls how descriptions become comment lines; plain by default.
	DescriptionFormat DescriptionFormat
	// AnnotateDefaults appends "# default: <value>" to scalars that differ from the default.
	AnnotateDefaults bool
}

func (c *FlatConverter) Format() string    { return FormatTOML }
func (c *FlatConverter) Extension() string { return ".toml" }

// ToExternal renders internal as flat text. Fields keep document order; sections are
// emitted for dictionaries and nested objects.
func (c *FlatConverter) ToExternal(typeName string, descriptions Descriptions, internal string, includeDescriptions bool) string {
	log := c.logger().With("type", typeName)
	doc := ParseElements(internal)
	skeleton, _ := c.skeleton(typeName, log)

	w := &flatWriter{
		typeName:     typeName,
		descriptions: descriptions,
		describe:     includeDescriptions,
		format:       c.DescriptionFormat,
		annotate:     c.AnnotateDefaults,
	}
	w.line("["+typeName+"]", lineHeader)
	w.writeFields(nil, doc.Fields, skeleton.index())
	return w.String()
}

func (c *FlatConverter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// skeleton fetches and parses the defaults for typeName.
func (c *FlatConverter) skeleton(typeName string, log *slog.Logger) (Document, bool) {
	if c.Oracle == nil {
		return Document{}, false
	}
	text, err := c.Oracle.DefaultXML(typeName)
	if err != nil {
		log.Warn("defaults unavailable", "error", err)
		return Document{}, false
	}
	doc, err := ParseElementsStrict(text)
	if err != nil {
		log.Warn("defaults do not parse", "error", err)
		return Document{}, false
	}
	return doc, true
}

type lineKind int

const (
	lineNone lineKind = iota
	lineHeader
	lineScalar
	lineList
	lineEnd
)

type flatWriter struct {
	b            strings.Builder
	typeName     string
	descriptions Descriptions
	describe     bool
	format       DescriptionFormat
	annotate     bool
	last         lineKind
}

func (w *flatWriter) String() string { return w.b.String() }

func (w *flatWriter) line(s string, kind lineKind) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
	w.last = kind
}

// separate writes the blank line between line groups.
func (w *flatWriter) separate(next lineKind) {
	switch {
	case w.last == lineNone || w.last == lineHeader:
	case next == lineHeader || w.last != next:
		w.b.WriteByte('\n')
	}
}

func (w *flatWriter) comments(path []string) {
	if !w.describe {
		return
	}
	text, ok := w.descriptions.Lookup(strings.Join(path, "."))
	if !ok {
		return
	}
	for _, l := range DescriptionLines(text, w.format) {
		if l == "" {
			w.b.WriteString("#\n")
			continue
		}
		w.b.WriteString("# " + l + "\n")
	}
}

func (w *flatWriter) section(path []string) string {
	return w.typeName + "." + strings.Join(path, ".")
}

func (w *flatWriter) writeFields(path []string, fields []Field, hints map[string]string) {
	shapes := make([]shape, len(fields))
	for i, f := range fields {
		shapes[i] = classify(f.Raw, hints[f.Name])
	}
	for i, f := range fields {
		sh := shapes[i]
		fieldPath := append(append([]string(nil), path...), f.Name)
		switch sh.Kind {
		case KindScalar:
			w.separate(lineScalar)
			w.comments(fieldPath)
			w.line(f.Name+" = "+formatLiteral(sh.El.Text, sh.El.Nil)+w.defaultNote(sh, hints[f.Name]), lineScalar)
		case KindList:
			w.separate(lineList)
			w.comments(fieldPath)
			key := f.Name
			if sh.Tag != "" {
				key += "." + strings.ToLower(sh.Tag)
			}
			w.line(key+" = "+formatList(itemLiterals(sh.Items)), lineList)
		case KindOpaque:
			w.separate(lineScalar)
			w.comments(fieldPath)
			w.line(f.Name+".xml = "+quoteString(strings.TrimSpace(f.Raw)), lineScalar)
		case KindDictionary:
			w.separate(lineHeader)
			w.comments(fieldPath)
			w.line("["+w.section(fieldPath)+"-dictionary]", lineHeader)
			for _, e := range sh.Entries {
				w.line(quoteString(e.Key)+" = "+formatLiteral(e.Value, e.Nil), lineScalar)
			}
			w.endIfNeeded(fieldPath, shapes[i+1:])
		case KindObject:
			w.separate(lineHeader)
			w.comments(fieldPath)
			w.line("["+w.section(fieldPath)+"]", lineHeader)
			w.writeFields(fieldPath, sh.El.Children, childHints(hints[f.Name]))
			w.endIfNeeded(fieldPath, shapes[i+1:])
		}
	}
}

// endIfNeeded closes a section when a later sibling writes plain lines into the
// parent section, which would otherwise be read as part of this one.
func (w *flatWriter) endIfNeeded(path []string, rest []shape) {
	for _, sh := range rest {
		switch sh.Kind {
		case KindScalar, KindList, KindOpaque:
			w.line("["+w.section(path)+"-end]", lineEnd)
			return
		}
	}
}

func (w *flatWriter) defaultNote(sh shape, hint string) string {
	if !w.annotate || hint == "" {
		return ""
	}
	def := inspect(hint)
	if def.complex() {
		return ""
	}
	if (literal{Text: def.Text, Null: def.Nil}).equal(literal{Text: sh.El.Text, Null: sh.El.Nil}) {
		return ""
	}
	return " # default: " + formatLiteral(def.Text, def.Nil)
}

func itemLiterals(items []element) []literal {
	out := make([]literal, len(items))
	for i, it := range items {
		out[i] = literal{Text: it.Text, Null: it.Nil}
	}
	return out
}
