package configapi

import (
	"strings"
	"testing"
)

func TestBuilderString(t *testing.T) {
	out := NewBuilder("Cfg").
		Value("A", "1").
		Null("B").
		List("L", "int", "1").
		Value("A", "2").
		String()
	want := XMLDeclaration + "\n" +
		`<Cfg xmlns:xsd="` + XSDNamespace + `" xmlns:xsi="` + XSINamespace + `">` + "\n" +
		"  <A>2</A>\n" +
		"  <B xsi:nil=\"true\" />\n" +
		"  <L>\n" +
		"    <int>1</int>\n" +
		"  </L>\n" +
		"</Cfg>"
	if out != want {
		t.Fatalf("unexpected document:\n%s", out)
	}
}

func TestBuilderNested(t *testing.T) {
	inner := NewBuilder("Size").Value("Width", "3")
	doc := NewBuilder("Cfg").
		Object("Size", inner).
		Dictionary("D", Entry{Key: "k", Value: "v"}, Entry{Key: "n", Nil: true}).
		Raw("Blob", "  <Blob><X>1</X><X><Y /></X></Blob>\n").
		Document()

	size, _ := doc.Lookup("Size")
	if size != "<Size>\n    <Width>3</Width>\n  </Size>" {
		t.Fatalf("size = %q", size)
	}
	d, _ := doc.Lookup("D")
	sh := classify(d, "")
	if sh.Kind != KindDictionary || len(sh.Entries) != 2 || !sh.Entries[1].Nil {
		t.Fatalf("dictionary not readable back: %+v", sh)
	}
	if blob, _ := doc.Lookup("Blob"); blob != "<Blob><X>1</X><X><Y /></X></Blob>" {
		t.Fatalf("raw block altered: %q", blob)
	}

	reparsed := ParseElements(doc.String())
	if reparsed.String() != doc.String() {
		t.Fatalf("builder output is not canonical")
	}
}

func TestBuilderEscapesText(t *testing.T) {
	raw := NewBuilder("Cfg").Value("T", `a<b & "c"`).Fields()[0].Raw
	if raw != `<T>a&lt;b &amp; "c"</T>` {
		t.Fatalf("raw = %s", raw)
	}
	if got := inspect(raw).Text; got != `a<b & "c"` {
		t.Fatalf("text = %q", got)
	}
}

func TestBuilderEmptyContainers(t *testing.T) {
	out := NewBuilder("Cfg").List("L", "").Dictionary("D").Object("O", nil).String()
	for _, want := range []string{"<L />", "<D />", "<O />"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in\n%s", want, out)
		}
	}
}
