package configapi

import (
	"fmt"
	"io"
	"log/slog"
)

// Action describes what normalization did with one field.
type Action string

const (
	ActionKept     Action = "kept"     // current value preserved
	ActionInjected Action = "injected" // missing from the file, new default used
	ActionUpgraded Action = "upgraded" // untouched old default replaced by the new one
	ActionReset    Action = "reset"    // structurally corrupted, new default used
	ActionDropped  Action = "dropped"  // unknown to the current schema
)

// FieldAction records the decision taken for one field.
type FieldAction struct {
	Field  string
	Action Action
}

// LayoutResult is the outcome of a layout migration. When Err is set the result is
// the fallback: the current text untouched, the new defaults, and no backup request.
type LayoutResult struct {
	NormalizedXML         string
	NormalizedDefaultsXML string
	RequiresBackup        bool
	Actions               []FieldAction
	Err                   error
}

// IsFallback reports whether migration failed and the fallback was returned.
func (r LayoutResult) IsFallback() bool { return r.Err != nil }

// LayoutMigrator reconciles a user's document with the defaults recorded at last
// write and the defaults of the current schema.
type LayoutMigrator struct {
	// Logger receives per-field decisions at debug level and fallbacks at warn level.
	// Nil discards.
	Logger *slog.Logger
}

// NormalizeLayout runs a LayoutMigrator without logging.
func NormalizeLayout(typeName, current, oldDefaults, newDefaults string) LayoutResult {
	return LayoutMigrator{}.Normalize(typeName, current, oldDefaults, newDefaults)
}

// Normalize merges the three documents. Field order and the key set come from
// newDefaults. It never panics or fails outward: any internal failure yields the
// fallback result with Err set.
func (m LayoutMigrator) Normalize(typeName, current, oldDefaults, newDefaults string) (res LayoutResult) {
	log := m.logger().With("type", typeName)
	defer func() {
		if r := recover(); r != nil {
			res = fallback(current, newDefaults, &ConfigError{Type: ErrCatastrophic, Message: fmt.Sprintf("normalize %s: panic: %v", typeName, r)})
			log.Warn("layout migration failed, keeping current document", "error", res.Err)
		}
	}()
	out, err := m.normalize(log, typeName, current, oldDefaults, newDefaults)
	if err != nil {
		log.Warn("layout migration failed, keeping current document", "error", err)
		return fallback(current, newDefaults, err)
	}
	return out
}

func (m LayoutMigrator) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fallback(current, newDefaults string, err error) LayoutResult {
	return LayoutResult{NormalizedXML: current, NormalizedDefaultsXML: newDefaults, Err: err}
}

func (m LayoutMigrator) normalize(log *slog.Logger, typeName, current, oldDefaults, newDefaults string) (LayoutResult, error) {
	cur := ParseElements(current)
	old := ParseElements(oldDefaults).index()
	def := ParseElements(newDefaults)

	root := typeName
	if root == "" {
		root = def.Root
	}
	if !validName(root) {
		return LayoutResult{}, &ConfigError{Type: ErrCatastrophic, Message: fmt.Sprintf("normalize: invalid root name %q", root)}
	}

	var res LayoutResult
	curIndex := cur.index()
	normalized := make([]Field, 0, len(def.Fields))
	for _, f := range def.Fields {
		chosen, action := m.pick(f, curIndex, old)
		if action == ActionReset {
			res.RequiresBackup = true
		}
		normalized = append(normalized, Field{Name: f.Name, Raw: chosen})
		res.Actions = append(res.Actions, FieldAction{Field: f.Name, Action: action})
		log.Debug("layout field", "field", f.Name, "action", action)
	}

	known := def.index()
	for _, f := range cur.Fields {
		if _, ok := known[f.Name]; ok {
			continue
		}
		res.RequiresBackup = true
		res.Actions = append(res.Actions, FieldAction{Field: f.Name, Action: ActionDropped})
		log.Debug("layout field", "field", f.Name, "action", ActionDropped)
	}

	res.NormalizedXML = BuildElements(root, normalized)
	res.NormalizedDefaultsXML = BuildElements(root, def.Fields)
	return res, nil
}

// pick chooses the block for one defaults field.
func (m LayoutMigrator) pick(def Field, current, old map[string]string) (string, Action) {
	cur, ok := current[def.Name]
	if !ok {
		return def.Raw, ActionInjected
	}
	if IsCorrupted(def.Raw, cur) {
		return def.Raw, ActionReset
	}
	if prev, ok := old[def.Name]; ok && cur == prev && prev != def.Raw {
		return def.Raw, ActionUpgraded
	}
	return cur, ActionKept
}

// IsCorrupted reports whether current has lost structure that defaultBlock expects.
// The check is one level deep: a complex default found childless is corrupt, as is
// any complex child of the default that is missing or childless in current.
func IsCorrupted(defaultBlock, current string) bool {
	def := inspect(defaultBlock)
	if !def.complex() {
		return false
	}
	cur := inspect(current)
	if !cur.complex() {
		return true
	}
	curChildren := Document{Fields: cur.Children}.index()
	for _, g := range def.Children {
		if !inspect(g.Raw).complex() {
			continue
		}
		raw, ok := curChildren[g.Name]
		if !ok || !inspect(raw).complex() {
			return true
		}
	}
	return false
}
