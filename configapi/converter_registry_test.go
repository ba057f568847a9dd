package configapi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultRegistry(t *testing.T) {
	reg := NewDefaultConverterRegistry(testOracle())
	if diff := cmp.Diff([]string{FormatTOML, FormatXML}, reg.List()); diff != "" {
		t.Fatalf("formats mismatch (-want +got):\n%s", diff)
	}
	conv, err := reg.Get("TOML")
	if err != nil {
		t.Fatalf("get toml: %v", err)
	}
	if conv.Extension() != ".toml" {
		t.Fatalf("extension = %s", conv.Extension())
	}
	internal := defaultFlatCase().build()
	if got := conv.ToInternal("TestConfig", conv.ToExternal("TestConfig", nil, internal, false)); got != internal {
		t.Fatalf("registered converter does not round trip:\n%s", cmp.Diff(internal, got))
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := NewConverterRegistry()
	if err := reg.Register(IdentityConverter{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(IdentityConverter{}); !errors.Is(err, ErrConverterExists) {
		t.Fatalf("expected ErrConverterExists, got %v", err)
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("nil converter accepted")
	}
	if _, err := reg.Get("yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestIdentityConverter(t *testing.T) {
	var conv FormatConverter = IdentityConverter{}
	text := "<anything>at all</anything>"
	if conv.ToExternal("T", Descriptions{"anything": "x"}, text, true) != text {
		t.Fatalf("identity export changed text")
	}
	if conv.ToInternal("T", text) != text {
		t.Fatalf("identity import changed text")
	}
	if conv.Format() != FormatXML || conv.Extension() != ".xml" {
		t.Fatalf("unexpected identity metadata")
	}
}

func TestStaticOracle(t *testing.T) {
	src := map[string]string{"A": "<A />"}
	o := NewStaticOracle(src)
	src["A"] = "changed"
	if v, err := o.DefaultXML("A"); err != nil || v != "<A />" {
		t.Fatalf("DefaultXML(A) = %q, %v", v, err)
	}
	if _, err := o.DefaultXML("B"); err == nil {
		t.Fatalf("missing type should fail")
	}
	o.Set("B", "<B />")
	if v, _ := o.DefaultXML("B"); v != "<B />" {
		t.Fatalf("Set not visible: %q", v)
	}
	if _, ok := deserializerFor(o); ok {
		t.Fatalf("static oracle cannot deserialize")
	}
	if _, ok := deserializerFor(OracleFuncs{}); ok {
		t.Fatalf("empty OracleFuncs cannot deserialize")
	}
	if _, ok := deserializerFor(testOracle()); !ok {
		t.Fatalf("OracleFuncs with Deserialize should deserialize")
	}
	if _, err := (OracleFuncs{}).DefaultXML("A"); err == nil {
		t.Fatalf("OracleFuncs without Default should fail")
	}
}
