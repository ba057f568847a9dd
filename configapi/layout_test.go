package configapi

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sizeBuilder(w, h string) *Builder {
	return NewBuilder("Size").Value("Width", w).Value("Height", h)
}

func layoutDefaults(name string) string {
	return NewBuilder("TestConfig").
		Value("Name", name).
		Value("Count", "5").
		Object("Size", sizeBuilder("3", "4")).
		List("IntList", "int", "5", "10", "15").
		String()
}

func actionsOf(res LayoutResult) map[string]Action {
	m := make(map[string]Action, len(res.Actions))
	for _, a := range res.Actions {
		m[a.Field] = a.Action
	}
	return m
}

func TestNormalizeFirstRun(t *testing.T) {
	defaults := layoutDefaults("Hello")
	res := NormalizeLayout("TestConfig", "", "", defaults)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.NormalizedXML != defaults {
		t.Fatalf("first run should yield defaults:\n%s", cmp.Diff(defaults, res.NormalizedXML))
	}
	if res.NormalizedDefaultsXML != defaults {
		t.Fatalf("defaults changed:\n%s", cmp.Diff(defaults, res.NormalizedDefaultsXML))
	}
	if res.RequiresBackup {
		t.Fatalf("first run should not need a backup")
	}
	for field, a := range actionsOf(res) {
		if a != ActionInjected {
			t.Fatalf("%s: action %s, want injected", field, a)
		}
	}
}

func TestNormalizeUpgradesUntouchedDefault(t *testing.T) {
	old := layoutDefaults("Hello")
	res := NormalizeLayout("TestConfig", old, old, layoutDefaults("Hello2"))
	if !strings.Contains(res.NormalizedXML, "<Name>Hello2</Name>") {
		t.Fatalf("expected upgraded name:\n%s", res.NormalizedXML)
	}
	if got := actionsOf(res)["Name"]; got != ActionUpgraded {
		t.Fatalf("Name action = %s", got)
	}
	if res.RequiresBackup {
		t.Fatalf("upgrade should not need a backup")
	}
}

func TestNormalizePreservesEdits(t *testing.T) {
	old := layoutDefaults("Hello")
	current := NewBuilder("TestConfig").
		Value("Name", "Custom").
		Object("Size", sizeBuilder("8", "9")).
		List("IntList", "int", "7").
		String()
	res := NormalizeLayout("TestConfig", current, old, layoutDefaults("Hello2"))
	want := NewBuilder("TestConfig").
		Value("Name", "Custom").
		Value("Count", "5").
		Object("Size", sizeBuilder("8", "9")).
		List("IntList", "int", "7").
		String()
	if diff := cmp.Diff(want, res.NormalizedXML); diff != "" {
		t.Fatalf("normalized mismatch (-want +got):\n%s", diff)
	}
	wantActions := map[string]Action{
		"Name":    ActionKept,
		"Count":   ActionInjected,
		"Size":    ActionKept,
		"IntList": ActionKept,
	}
	if diff := cmp.Diff(wantActions, actionsOf(res)); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
	if res.RequiresBackup {
		t.Fatalf("no backup expected")
	}
}

func TestNormalizeDropsOrphans(t *testing.T) {
	defaults := layoutDefaults("Hello")
	current := NewBuilder("TestConfig").Value("Name", "Hello").Value("Legacy", "x").String()
	res := NormalizeLayout("TestConfig", current, defaults, defaults)
	if strings.Contains(res.NormalizedXML, "Legacy") {
		t.Fatalf("orphan survived:\n%s", res.NormalizedXML)
	}
	if !res.RequiresBackup {
		t.Fatalf("dropping a field requires a backup")
	}
	if got := actionsOf(res)["Legacy"]; got != ActionDropped {
		t.Fatalf("Legacy action = %s", got)
	}
}

func TestNormalizeResetsCorruptedObject(t *testing.T) {
	defaults := layoutDefaults("Hello")
	current := NewBuilder("TestConfig").Value("Name", "Edited").Value("Size", "").String()
	res := NormalizeLayout("TestConfig", current, defaults, defaults)
	if !strings.Contains(res.NormalizedXML, "<Width>3</Width>") {
		t.Fatalf("corrupted Size not reset:\n%s", res.NormalizedXML)
	}
	if !strings.Contains(res.NormalizedXML, "<Name>Edited</Name>") {
		t.Fatalf("edited Name lost:\n%s", res.NormalizedXML)
	}
	if !res.RequiresBackup {
		t.Fatalf("reset requires a backup")
	}
	if got := actionsOf(res)["Size"]; got != ActionReset {
		t.Fatalf("Size action = %s", got)
	}
}

func TestNormalizeResetsEmptiedDictionary(t *testing.T) {
	defaults := NewBuilder("TestConfig").
		Value("Name", "Hello").
		Dictionary("NamedValues", Entry{Key: "start", Value: "1"}).
		String()
	current := NewBuilder("TestConfig").Value("Name", "Hello").Value("NamedValues", "").String()
	res := NormalizeLayout("TestConfig", current, defaults, defaults)
	if got := actionsOf(res)["NamedValues"]; got != ActionReset {
		t.Fatalf("NamedValues action = %s", got)
	}
	if !res.RequiresBackup {
		t.Fatalf("reset requires a backup")
	}
	if res.NormalizedXML != defaults {
		t.Fatalf("dictionary not restored:\n%s", cmp.Diff(defaults, res.NormalizedXML))
	}
}

func TestNormalizeResetsObjectWithEmptiedDictionary(t *testing.T) {
	defaults := NewBuilder("TestConfig").
		Object("Size", NewBuilder("Size").
			Value("Width", "3").
			Dictionary("M", Entry{Key: "a", Value: "1"})).
		String()
	current := NewBuilder("TestConfig").
		Object("Size", NewBuilder("Size").Value("Width", "9").Value("M", "")).
		String()
	res := NormalizeLayout("TestConfig", current, defaults, defaults)
	if got := actionsOf(res)["Size"]; got != ActionReset {
		t.Fatalf("Size action = %s", got)
	}
	if !res.RequiresBackup {
		t.Fatalf("reset requires a backup")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	old := layoutDefaults("Hello")
	current := NewBuilder("TestConfig").Value("Name", "Custom").Value("Legacy", "1").String()
	newDefaults := layoutDefaults("Hello2")
	first := NormalizeLayout("TestConfig", current, old, newDefaults)
	second := NormalizeLayout("TestConfig", first.NormalizedXML, first.NormalizedDefaultsXML, newDefaults)
	if diff := cmp.Diff(first.NormalizedXML, second.NormalizedXML); diff != "" {
		t.Fatalf("second pass changed the document (-first +second):\n%s", diff)
	}
	if second.RequiresBackup {
		t.Fatalf("second pass should not need a backup")
	}
}

func TestNormalizeRootFromDefaults(t *testing.T) {
	defaults := layoutDefaults("Hello")
	res := NormalizeLayout("", "", "", defaults)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if ParseElements(res.NormalizedXML).Root != "TestConfig" {
		t.Fatalf("root not taken from defaults:\n%s", res.NormalizedXML)
	}
}

func TestNormalizeRenamesRoot(t *testing.T) {
	current := NewBuilder("OldName").Value("Name", "Custom").String()
	res := NormalizeLayout("TestConfig", current, "", layoutDefaults("Hello"))
	if doc := ParseElements(res.NormalizedXML); doc.Root != "TestConfig" {
		t.Fatalf("root = %q", doc.Root)
	}
	if !strings.Contains(res.NormalizedXML, "<Name>Custom</Name>") {
		t.Fatalf("value lost across root rename:\n%s", res.NormalizedXML)
	}
}

func TestNormalizeFallback(t *testing.T) {
	current := "<whatever>keep me</whatever>"
	defaults := layoutDefaults("Hello")
	res := NormalizeLayout("bad name", current, "", defaults)
	if !res.IsFallback() {
		t.Fatalf("expected fallback")
	}
	if !IsType(res.Err, ErrCatastrophic) {
		t.Fatalf("unexpected error type: %v", res.Err)
	}
	if res.NormalizedXML != current || res.NormalizedDefaultsXML != defaults {
		t.Fatalf("fallback must return inputs unchanged: %+v", res)
	}
	if res.RequiresBackup {
		t.Fatalf("fallback must not request a backup")
	}
}

func TestNormalizeLogsDecisions(t *testing.T) {
	var buf bytes.Buffer
	m := LayoutMigrator{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	old := layoutDefaults("Hello")
	m.Normalize("TestConfig", old, old, layoutDefaults("Hello2"))
	out := buf.String()
	if !strings.Contains(out, "field=Name") || !strings.Contains(out, "action=upgraded") {
		t.Fatalf("decision not logged:\n%s", out)
	}
}

func TestIsCorrupted(t *testing.T) {
	cases := []struct {
		name    string
		def     string
		current string
		want    bool
	}{
		{"scalar default", "<N>1</N>", "<N />", false},
		{"object found empty", "<Size><Width>3</Width></Size>", "<Size />", true},
		{"object edited", "<Size><Width>3</Width></Size>", "<Size><Width>9</Width></Size>", false},
		{"nested object emptied", "<O><I><A>1</A><B>2</B></I><C>1</C></O>", "<O><I /><C>1</C></O>", true},
		{"nested object missing", "<O><I><A>1</A><B>2</B></I><C>1</C></O>", "<O><C>1</C></O>", true},
		{"list emptied", "<L><int>1</int><int>2</int></L>", "<L />", true},
		{"list edited", "<L><int>1</int><int>2</int></L>", "<L><int>7</int></L>", false},
		{"nested list emptied", "<O><L><int>1</int><int>2</int></L><C>1</C></O>", "<O><L /><C>1</C></O>", true},
		{"dictionary emptied", "<D><item><Key>a</Key><Value>1</Value></item></D>", "<D />", true},
		{"dictionary entry flattened", "<D><item><Key>a</Key><Value>1</Value></item></D>", "<D><item /></D>", true},
		{"dictionary edited", "<D><item><Key>a</Key><Value>1</Value></item></D>", "<D><item><Key>b</Key><Value>2</Value></item></D>", false},
		{"nested dictionary emptied", "<S><M><item><Key>a</Key><Value>1</Value></item></M><W>1</W></S>", "<S><M /><W>1</W></S>", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsCorrupted(c.def, c.current); got != c.want {
				t.Fatalf("IsCorrupted = %v, want %v", got, c.want)
			}
		})
	}
}
