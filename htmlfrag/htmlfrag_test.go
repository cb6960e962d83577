package htmlfrag

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *Fragment {
	t.Helper()
	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return f
}

func TestString_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"multiple roots", "<p>One</p>\n<p>Two</p>", "<p>One</p>\n<p>Two</p>"},
		{"leading text", "Hello <b>world</b>", "Hello <b>world</b>"},
		{"void br", "<p>Two<br>three</p>", "<p>Two<br>three</p>"},
		{"self-closing img", `<img src="a.png"/>`, `<img src="a.png">`},
		{"media voids", `<video><source src="v.mp4"><track src="t.vtt"></video>`, `<video><source src="v.mp4"><track src="t.vtt"></video>`},
		{"entities", "<p>x &lt; y &amp; z &gt; w</p>", "<p>x &lt; y &amp; z &gt; w</p>"},
		{"attr quotes", `<a title='say "hi"'>x</a>`, `<a title="say &quot;hi&quot;">x</a>`},
		{"comment", "<!-- note --><p>x</p>", "<!-- note --><p>x</p>"},
		{"script raw", "<script>if (a < b) {}</script>", "<script>if (a < b) {}</script>"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.in).String()
			if got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString_NoContainer(t *testing.T) {
	got := mustParse(t, "<p>a</p><p>b</p>").String()
	if strings.HasPrefix(got, "<div") {
		t.Fatalf("synthetic container leaked into output: %q", got)
	}
}

func TestString_Idempotent(t *testing.T) {
	in := `<p class="x">A<br/>B</p><ul><li>1<li>2</ul><img src="i.png">`
	once := mustParse(t, in).String()
	twice := mustParse(t, once).String()
	if once != twice {
		t.Fatalf("serialisation not stable:\n once: %q\ntwice: %q", once, twice)
	}
	if strings.Contains(once, "/>") || strings.Contains(once, "</br>") || strings.Contains(once, "</img>") {
		t.Fatalf("void element closed: %q", once)
	}
}

func TestEscapeXMLText(t *testing.T) {
	got := EscapeXMLText(`<p class="a">x & y</p>`)
	want := `&lt;p class="a"&gt;x &amp; y&lt;/p&gt;`
	if got != want {
		t.Fatalf("EscapeXMLText = %q, want %q", got, want)
	}
}

func TestText(t *testing.T) {
	f := mustParse(t, "<p>Hello   <b>world</b></p><script>x()</script>")
	if got := f.Text(); got != "Hello world" {
		t.Fatalf("Text() = %q, want %q", got, "Hello world")
	}
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<p>a</p><p>b</p>", false},
		{`<div class="os-raise-ib-input"></div>`, false},
		{"<script>var s = '<body>';</script>", false},
		{"", false},
		{"<!DOCTYPE html><p>x</p>", true},
		{"<html><body><p>x</p></body></html>", true},
		{"<head><title>t</title></head><p>x</p>", true},
		{"<p>x</p></body>", true},
	}
	for _, tt := range tests {
		if got := IsDocument(tt.in); got != tt.want {
			t.Errorf("IsDocument(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFindByClass(t *testing.T) {
	f := mustParse(t, `<div class="foo bar"><span class="barista">x</span></div><p class="bar">y</p>`)
	got := f.FindByClass("bar")
	if len(got) != 2 {
		t.Fatalf("FindByClass(bar) = %d nodes, want 2", len(got))
	}
	if got[0].Data != "div" || got[1].Data != "p" {
		t.Fatalf("unexpected order: %s, %s", got[0].Data, got[1].Data)
	}
	if n := len(f.FindByClass("missing")); n != 0 {
		t.Fatalf("FindByClass(missing) = %d nodes, want 0", n)
	}
}

func TestFindByClasses(t *testing.T) {
	f := mustParse(t, `<div class="os-raise-ib-pset"><div class="os-raise-ib-pset-problem"></div></div><div class="os-raise-ib-input os-raise-ib-pset"></div>`)
	got := f.FindByClasses("os-raise-ib-input", "os-raise-ib-pset", "os-raise-ib-pset-problem")
	if len(got) != 3 {
		t.Fatalf("FindByClasses = %d nodes, want 3", len(got))
	}
	if !HasClass(got[1], "os-raise-ib-pset-problem") || !HasClass(got[2], "os-raise-ib-input") {
		t.Fatal("nodes not in document order")
	}
}

func TestSelect(t *testing.T) {
	f := mustParse(t, `<div class="os-raise-ib-input"></div><span class="os-raise-ib-input"></span>`)
	if n := len(f.Select("div.os-raise-ib-input")); n != 1 {
		t.Fatalf("Select = %d nodes, want 1", n)
	}
}

func TestIsFragment(t *testing.T) {
	alone := mustParse(t, "\n  <div class=\"os-raise-ib-input\">x</div>\n")
	nodes := alone.FindByClass("os-raise-ib-input")
	if len(nodes) != 1 || !IsFragment(nodes[0]) {
		t.Fatal("block surrounded by whitespace should be a fragment")
	}

	mixed := mustParse(t, `<p>intro</p><div class="os-raise-ib-input"></div>`)
	nodes = mixed.FindByClass("os-raise-ib-input")
	if len(nodes) != 1 || IsFragment(nodes[0]) {
		t.Fatal("block next to a paragraph should not be a fragment")
	}
}

func TestCollectAttributeValues(t *testing.T) {
	f := mustParse(t, `<img src="a.png"><video src="b.mp4"><source src="c.mp4"></video>`)
	got := f.CollectAttributeValues("src", "img")
	if strings.Join(got, ",") != "b.mp4,c.mp4" {
		t.Fatalf("CollectAttributeValues = %v", got)
	}
	all := f.CollectAttributeValues("src", "")
	if len(all) != 3 {
		t.Fatalf("CollectAttributeValues without exclusion = %v", all)
	}
}

func TestRewriteAttributeValues(t *testing.T) {
	f := mustParse(t, `<a href="old.html">x</a><img src="keep.png">`)
	changed := f.RewriteAttributeValues([]string{"href", "src"}, map[string]string{"old.html": "new.html"})
	if len(changed) != 1 || changed["old.html"] != "new.html" {
		t.Fatalf("changed = %v", changed)
	}
	if !strings.Contains(f.String(), `href="new.html"`) {
		t.Fatalf("rewrite not applied: %s", f.String())
	}

	none := f.RewriteAttributeValues([]string{"href"}, map[string]string{"nothing": "x"})
	if len(none) != 0 {
		t.Fatalf("expected empty result, got %v", none)
	}
}

func TestRemoveAttribute(t *testing.T) {
	f := mustParse(t, `<p style="a">x</p><p>y</p><div><span style="b"></span><em style="c"></em></div>`)
	if n := f.RemoveAttribute("style"); n != 2 {
		t.Fatalf("RemoveAttribute = %d, want 2", n)
	}
	want := `<p>x</p><p>y</p><div><span></span><em></em></div>`
	if got := f.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if n := f.RemoveAttribute("style"); n != 0 {
		t.Fatalf("second RemoveAttribute = %d, want 0", n)
	}
}

func TestPlaceholder(t *testing.T) {
	markup := Placeholder("os-raise-content", "data-content-id", "abc-123")
	want := `<div class="os-raise-content" data-content-id="abc-123"></div>`
	if markup != want {
		t.Fatalf("Placeholder = %q, want %q", markup, want)
	}

	id, ok := mustParse(t, "  "+markup+"\n").PlaceholderID("os-raise-content", "data-content-id")
	if !ok || id != "abc-123" {
		t.Fatalf("PlaceholderID = %q, %v", id, ok)
	}
	if got := mustParse(t, markup).String(); got != want {
		t.Fatalf("placeholder does not round trip: %q", got)
	}
}

func TestPlaceholderID_NotPlaceholder(t *testing.T) {
	tests := []string{
		`<p>plain</p>`,
		`<div class="os-raise-content" data-content-id="x"></div><p>more</p>`,
		`<div class="other" data-content-id="x"></div>`,
		`<div class="os-raise-content"></div>`,
		`<span class="os-raise-content" data-content-id="x"></span>`,
		``,
	}
	for _, in := range tests {
		if id, ok := mustParse(t, in).PlaceholderID("os-raise-content", "data-content-id"); ok {
			t.Errorf("PlaceholderID(%q) = %q, want not a placeholder", in, id)
		}
	}
}

func TestAttrHelpers(t *testing.T) {
	f := mustParse(t, `<div data-content-id="a" class="x"></div>`)
	n := f.Nodes()[0]
	SetAttr(n, "data-content-id", "b")
	if v, _ := Attr(n, "data-content-id"); v != "b" {
		t.Fatalf("SetAttr did not replace: %q", v)
	}
	SetAttr(n, "data-new", "c")
	if v, ok := Attr(n, "data-new"); !ok || v != "c" {
		t.Fatalf("SetAttr did not append: %q %v", v, ok)
	}
	if !DelAttr(n, "data-new") || DelAttr(n, "data-new") {
		t.Fatal("DelAttr should report removal exactly once")
	}
	if !HasClass(n, "x") || HasClass(n, "y") {
		t.Fatal("HasClass mismatch")
	}
}
