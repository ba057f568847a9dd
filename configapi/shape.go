package configapi

import "strings"

// FieldKind is the structural shape of a raw block. It is derived each time from
// the text, never stored.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindList
	KindDictionary
	KindObject
	KindOpaque
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindDictionary:
		return "dictionary"
	case KindObject:
		return "object"
	default:
		return "opaque"
	}
}

// primitiveTags are the item element names a serializer uses for scalar collections.
var primitiveTags = map[string]struct{}{
	"string": {}, "int": {}, "boolean": {}, "bool": {}, "float": {}, "double": {},
	"long": {}, "short": {}, "byte": {}, "sbyte": {}, "decimal": {}, "char": {},
	"unsignedInt": {}, "unsignedLong": {}, "unsignedShort": {}, "unsignedByte": {},
	"dateTime": {}, "guid": {}, "duration": {}, "base64Binary": {},
}

// primitiveTag returns the serializer's spelling of a primitive item tag, matching
// case-insensitively. Unknown tags come back unchanged.
func primitiveTag(tag string) (string, bool) {
	if _, ok := primitiveTags[tag]; ok {
		return tag, true
	}
	for t := range primitiveTags {
		if strings.EqualFold(t, tag) {
			return t, true
		}
	}
	return tag, false
}

const (
	defaultItemTag  = "item"
	defaultKeyTag   = "Key"
	defaultValueTag = "Value"
)

// Entry is one key/value pair of a dictionary block. Nil marks a null value.
type Entry struct {
	Key   string
	Value string
	Nil   bool
}

// shape is a classified block.
type shape struct {
	Kind    FieldKind
	El      element
	Tag     string    // list item tag
	Items   []element // list items
	Entries []Entry
	// Dictionary tag names, kept so rebuilt blocks match the source casing.
	ItemTag, KeyTag, ValueTag string
}

// classify derives the shape of raw. hint is the corresponding defaults block, used
// for single-item and empty collections; it may be empty.
func classify(raw, hint string) shape {
	el := inspect(raw)
	sh := shape{Kind: KindScalar, El: el}
	var hs *shape
	if strings.TrimSpace(hint) != "" {
		h := classify(hint, "")
		hs = &h
	}
	if !el.complex() {
		if hs != nil && !el.Nil && strings.TrimSpace(el.Text) == "" {
			switch hs.Kind {
			case KindList:
				sh.Kind, sh.Tag = KindList, hs.Tag
			case KindDictionary:
				sh.Kind = KindDictionary
				sh.ItemTag, sh.KeyTag, sh.ValueTag = hs.ItemTag, hs.KeyTag, hs.ValueTag
			}
		}
		return sh
	}
	if entries, tags, ok := dictionaryEntries(el.Items); ok {
		sh.Kind, sh.Entries = KindDictionary, entries
		sh.ItemTag, sh.KeyTag, sh.ValueTag = tags[0], tags[1], tags[2]
		return sh
	}
	if items, tag, ok := listItems(el.Items); ok {
		_, primitive := primitiveTags[tag]
		if len(items) > 1 || primitive || hs != nil && hs.Kind == KindList {
			sh.Kind, sh.Tag, sh.Items = KindList, tag, items
			return sh
		}
	}
	if len(el.Items) != len(el.Children) {
		sh.Kind = KindOpaque
		return sh
	}
	sh.Kind = KindObject
	return sh
}

// listItems reports whether every child is a scalar sharing one tag.
func listItems(children []Field) ([]element, string, bool) {
	if len(children) == 0 {
		return nil, "", false
	}
	tag := children[0].Name
	items := make([]element, 0, len(children))
	for _, c := range children {
		if c.Name != tag {
			return nil, "", false
		}
		it := inspect(c.Raw)
		if it.complex() {
			return nil, "", false
		}
		items = append(items, it)
	}
	return items, tag, true
}

// dictionaryEntries matches the item/Key/Value layout; tag comparison ignores case.
func dictionaryEntries(children []Field) ([]Entry, [3]string, bool) {
	var tags [3]string
	if len(children) == 0 {
		return nil, tags, false
	}
	entries := make([]Entry, 0, len(children))
	for i, c := range children {
		if !strings.EqualFold(c.Name, defaultItemTag) {
			return nil, tags, false
		}
		it := inspect(c.Raw)
		if len(it.Items) != 2 {
			return nil, tags, false
		}
		k, v := inspect(it.Items[0].Raw), inspect(it.Items[1].Raw)
		if !strings.EqualFold(k.Name, defaultKeyTag) || !strings.EqualFold(v.Name, defaultValueTag) || k.complex() || v.complex() {
			return nil, tags, false
		}
		if i == 0 {
			tags = [3]string{c.Name, k.Name, v.Name}
		}
		entries = append(entries, Entry{Key: k.Text, Value: v.Text, Nil: v.Nil})
	}
	return entries, tags, true
}

// childHints indexes the children of an object hint.
func childHints(hint string) map[string]string {
	if strings.TrimSpace(hint) == "" {
		return nil
	}
	return ParseElements(hint).index()
}
