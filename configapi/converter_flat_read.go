package configapi

import (
	"log/slog"
	"slices"
	"strings"
)

// ToInternal parses flat text and substitutes every value it finds into the
// defaults skeleton. Lines that cannot be decoded are skipped, leaving the default
// block in place. When the oracle can deserialize, fields that break
// deserialization are reverted to their defaults one at a time.
func (c *FlatConverter) ToInternal(typeName, external string) string {
	log := c.logger().With("type", typeName)
	parsed := parseFlat(typeName, external, log)
	skeleton, ok := c.skeleton(typeName, log)
	if !ok {
		log.Warn("no defaults skeleton, rebuilding from file contents only")
		return parsed.synthesize(typeName)
	}
	fields := parsed.rebuild("", skeleton.Fields, 1)
	deserialize, ok := deserializerFor(c.Oracle)
	if !ok {
		return BuildElements(typeName, fields)
	}
	return validateFields(typeName, fields, skeleton.Fields, deserialize, log)
}

// validateFields keeps every parsed field whose substitution still deserializes.
func validateFields(typeName string, fields, defaults []Field, deserialize func(string, string) (any, error), log *slog.Logger) string {
	doc := BuildElements(typeName, fields)
	_, err := deserialize(typeName, doc)
	if err == nil {
		return doc
	}
	log.Warn("rebuilt document does not deserialize, checking fields", "error", err)
	accepted := slices.Clone(defaults)
	for i := range fields {
		if fields[i].Raw == defaults[i].Raw {
			continue
		}
		trial := slices.Clone(accepted)
		trial[i] = fields[i]
		if _, err := deserialize(typeName, BuildElements(typeName, trial)); err != nil {
			log.Warn("field reverted to default", "field", fields[i].Name, "error", err)
			continue
		}
		accepted = trial
	}
	return BuildElements(typeName, accepted)
}

type listValue struct {
	tag   string
	items []literal
}

type assignKind int

const (
	assignScalar assignKind = iota
	assignList
	assignDictionary
)

type assignRecord struct {
	path string
	kind assignKind
}

// flatValues holds every decoded assignment keyed by dotted path from the root.
type flatValues struct {
	scalars   map[string]literal
	lists     map[string]listValue
	dicts     map[string][]Entry
	ancestors map[string]struct{}
	records   []assignRecord
}

func newFlatValues() *flatValues {
	return &flatValues{
		scalars:   make(map[string]literal),
		lists:     make(map[string]listValue),
		dicts:     make(map[string][]Entry),
		ancestors: make(map[string]struct{}),
	}
}

func (v *flatValues) mark(path string, kind assignKind) {
	v.records = append(v.records, assignRecord{path: path, kind: kind})
	for i := strings.LastIndexByte(path, '.'); i > 0; i = strings.LastIndexByte(path[:i], '.') {
		v.ancestors[path[:i]] = struct{}{}
	}
}

func (v *flatValues) addScalar(path string, lit literal) {
	v.scalars[path] = lit
	v.mark(path, assignScalar)
}

// addList stores a list under its full key and, when the key is dotted, under the
// parent with the last segment as item tag ("IntList.int").
func (v *flatValues) addList(path string, items []literal) {
	v.lists[path] = listValue{items: items}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		v.lists[path[:i]] = listValue{tag: path[i+1:], items: items}
	}
	v.mark(path, assignList)
}

func (v *flatValues) openDictionary(path string) {
	v.dicts[path] = nil
	v.mark(path, assignDictionary)
}

func (v *flatValues) addEntry(path string, e Entry) {
	v.dicts[path] = append(v.dicts[path], e)
}

func (v *flatValues) hasUnder(path string) bool {
	_, ok := v.ancestors[path]
	return ok
}

// parseFlat reads the flat text line by line. Section headers only set the path
// that following keys are relative to; header paths are absolute, so no nesting
// state is kept beyond the current section.
func parseFlat(typeName, text string, log *slog.Logger) *flatValues {
	v := newFlatValues()
	section, dict := "", ""
	inDict := false
	for n, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			hdr := strings.TrimSpace(stripComment(line))
			if len(hdr) < 2 || hdr[len(hdr)-1] != ']' {
				log.Debug("skipping malformed header", "line", n+1)
				continue
			}
			rel := relativeSection(typeName, strings.TrimSpace(hdr[1:len(hdr)-1]))
			switch {
			case strings.HasSuffix(rel, "-dictionary"):
				dict, inDict = strings.TrimSuffix(rel, "-dictionary"), true
				v.openDictionary(dict)
			case strings.HasSuffix(rel, "-end"):
				section, inDict = parentPath(strings.TrimSuffix(rel, "-end")), false
			default:
				section, inDict = rel, false
			}
			continue
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			log.Debug("skipping line without assignment", "line", n+1)
			continue
		}
		name, err := parseKey(key)
		if err != nil {
			log.Debug("skipping undecodable key", "line", n+1, "error", err)
			continue
		}
		value = strings.TrimSpace(stripComment(value))
		if inDict {
			lit, err := parseLiteral(value)
			if err != nil {
				log.Debug("skipping dictionary entry", "line", n+1, "error", err)
				continue
			}
			v.addEntry(dict, Entry{Key: name, Value: lit.Text, Nil: lit.Null})
			continue
		}
		path := joinPath(section, name)
		if strings.HasPrefix(value, "[") {
			items, err := parseList(value)
			if err != nil {
				log.Debug("skipping list", "line", n+1, "error", err)
				continue
			}
			v.addList(path, items)
			continue
		}
		lit, err := parseLiteral(value)
		if err != nil {
			log.Debug("skipping value", "line", n+1, "error", err)
			continue
		}
		v.addScalar(path, lit)
	}
	return v
}

// relativeSection strips the type name from a header. Headers written for another
// type name still resolve by dropping their first segment.
func relativeSection(typeName, name string) string {
	if name == typeName {
		return ""
	}
	if rest, ok := strings.CutPrefix(name, typeName+"."); ok {
		return rest
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func parentPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return ""
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func splitAssignment(line string) (string, string, bool) {
	i := indexOutsideQuotes(line, '=')
	if i <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:i])
	if key == "" {
		return "", "", false
	}
	return key, line[i+1:], true
}

func parseKey(key string) (string, error) {
	if key[0] == '"' || key[0] == '\'' {
		return unquoteString(key)
	}
	return key, nil
}

// rebuild substitutes parsed values into the skeleton fields under prefix. The
// result has exactly one field per skeleton field, in skeleton order.
func (v *flatValues) rebuild(prefix string, fields []Field, depth int) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Raw: v.rebuildField(joinPath(prefix, f.Name), f, depth)}
	}
	return out
}

func (v *flatValues) rebuildField(path string, f Field, depth int) string {
	sh := classify(f.Raw, "")
	current := literal{Text: sh.El.Text, Null: sh.El.Nil}
	if lit, ok := v.scalars[path]; ok && (sh.Kind == KindScalar || lit.Null) {
		if lit.equal(current) {
			return f.Raw
		}
		return renderLiteral(f.Name, lit)
	}
	switch sh.Kind {
	case KindScalar:
		// an empty default may stand for an empty collection
		if !sh.El.Nil && strings.TrimSpace(sh.El.Text) == "" {
			if lv, ok := v.lists[path]; ok {
				tag, _ := primitiveTag(lv.tag)
				return renderList(f.Name, tag, lv.items, depth)
			}
			if entries, ok := v.dicts[path]; ok {
				return renderDictionary(f.Name, [3]string{}, entries, depth)
			}
		}
	case KindList:
		lv, ok := v.lists[path]
		if !ok {
			break
		}
		// tags are written lowercase; the skeleton keeps the serializer's casing
		tag := lv.tag
		if tag == "" || strings.EqualFold(tag, sh.Tag) {
			tag = sh.Tag
		}
		if tag == sh.Tag && slices.Equal(lv.items, itemLiterals(sh.Items)) {
			break
		}
		return renderList(f.Name, tag, lv.items, depth)
	case KindDictionary:
		entries, ok := v.dicts[path]
		if !ok || slices.Equal(entries, sh.Entries) {
			break
		}
		return renderDictionary(f.Name, [3]string{sh.ItemTag, sh.KeyTag, sh.ValueTag}, entries, depth)
	case KindObject:
		if !v.hasUnder(path) {
			break
		}
		children := v.rebuild(path, sh.El.Children, depth+1)
		if slices.Equal(children, sh.El.Children) {
			break
		}
		raws := make([]string, len(children))
		for i, c := range children {
			raws[i] = c.Raw
		}
		return renderContainer(f.Name, raws, depth)
	case KindOpaque:
		lit, ok := v.scalars[path+".xml"]
		if !ok || lit.Null {
			break
		}
		if el, err := scanElement(lit.Text); err == nil && el.Name == f.Name {
			return strings.TrimSpace(lit.Text)
		}
	}
	return f.Raw
}

// synthesize builds a document from the parsed values alone, in the order they
// were first seen. Used when no defaults skeleton is available.
func (v *flatValues) synthesize(typeName string) string {
	b := NewBuilder(typeName)
	for _, rec := range v.records {
		segs := strings.Split(rec.path, ".")
		tag := ""
		opaque := false
		if n := len(segs); n > 1 {
			last := segs[n-1]
			if t, ok := primitiveTag(last); ok && rec.kind == assignList {
				tag, segs = t, segs[:n-1]
			} else if last == "xml" && rec.kind == assignScalar {
				opaque, segs = true, segs[:n-1]
			}
		}
		if slices.ContainsFunc(segs, func(s string) bool { return !validName(s) }) {
			continue
		}
		parent := b
		for _, s := range segs[:len(segs)-1] {
			parent = parent.object(s)
		}
		name := segs[len(segs)-1]
		switch rec.kind {
		case assignScalar:
			lit := v.scalars[rec.path]
			switch {
			case opaque && !lit.Null:
				parent.Raw(name, lit.Text)
			case lit.Null:
				parent.Null(name)
			default:
				parent.Value(name, lit.Text)
			}
		case assignList:
			parent.put(builderField{name: name, kind: KindList, tag: tag, items: v.lists[rec.path].items})
		case assignDictionary:
			parent.Dictionary(name, v.dicts[rec.path]...)
		}
	}
	return b.String()
}
