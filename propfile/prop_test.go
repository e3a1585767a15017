package propfile

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse_Basic(t *testing.T) {
	data := []byte("greeting=Hello\nfarewell=Goodbye\n")
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, _, _ := f.Lookup("greeting"); got != "Hello" {
		t.Errorf("greeting = %q, want %q", got, "Hello")
	}
	if got, _, _ := f.Lookup("farewell"); got != "Goodbye" {
		t.Errorf("farewell = %q, want %q", got, "Goodbye")
	}
}

func TestParse_ColonSeparator(t *testing.T) {
	data := []byte("name: World\n")
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, _, _ := f.Lookup("name"); got != "World" {
		t.Errorf("name = %q, want %q", got, "World")
	}
}

func TestParse_ValueWithEquals(t *testing.T) {
	data := []byte("url=http://example.com?a=1&b=2\n")
	f, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, _, _ := f.Lookup("url"); got != "http://example.com?a=1&b=2" {
		t.Errorf("url = %q", got)
	}
}

func TestLookup_AttachedComments(t *testing.T) {
	src := "# File header\n\n# Title of the window\n! shown on launch\ntitle=Main\nplain=x\n"
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		key, value, comment string
	}{
		{"title", "Main", "Title of the window\nshown on launch"},
		{"plain", "x", ""},
	}
	for _, tc := range tests {
		v, c, ok := f.Lookup(tc.key)
		if !ok || v != tc.value || c != tc.comment {
			t.Errorf("Lookup(%q) = %q, %q, %v; want %q, %q", tc.key, v, c, ok, tc.value, tc.comment)
		}
	}
	if _, _, ok := f.Lookup("missing"); ok {
		t.Error("Lookup(missing) should report false")
	}
}

func TestSet_UpsertAndMarshal(t *testing.T) {
	f, err := Parse([]byte("a=\nb=\n"))
	if err != nil {
		t.Fatal(err)
	}
	f.Set("a", "value_a")
	f.Set("c", "value_c")

	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	want := "a=value_a\nb=\n\nc=value_c\n"
	if string(out) != want {
		t.Errorf("Marshal =\n%q\nwant\n%q", out, want)
	}
}

func TestSetComment(t *testing.T) {
	f, err := Parse([]byte("# old\n# block\nkey=v\nother=w\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !f.SetComment("key", "new") {
		t.Fatal("SetComment(key) = false")
	}
	if !f.SetComment("other", "first\nsecond") {
		t.Fatal("SetComment(other) = false")
	}
	if f.SetComment("missing", "x") {
		t.Fatal("SetComment on missing key should fail")
	}

	out, _ := f.Marshal()
	want := "# new\nkey=v\n# first\n# second\nother=w\n"
	if string(out) != want {
		t.Fatalf("Marshal =\n%q\nwant\n%q", out, want)
	}
	if _, c, _ := f.Lookup("other"); c != "first\nsecond" {
		t.Fatalf("comment = %q", c)
	}

	f.SetComment("key", "")
	if _, c, _ := f.Lookup("key"); c != "" {
		t.Fatalf("cleared comment = %q", c)
	}
}

func TestDelete_RemovesCommentBlock(t *testing.T) {
	f, err := Parse([]byte("# header\n\n# about a\na=1\nb=2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !f.Delete("a") {
		t.Fatal("Delete(a) = false")
	}
	if f.Delete("a") {
		t.Fatal("second Delete should report false")
	}
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Keys() = %v", got)
	}
	out, _ := f.Marshal()
	if string(out) != "# header\n\nb=2\n" {
		t.Fatalf("Marshal = %q", out)
	}
	if v, _, ok := f.Lookup("b"); !ok || v != "2" {
		t.Fatalf("index stale after delete: %q %v", v, ok)
	}
}

func TestMarshal_PreservesCommentsAndBlanks(t *testing.T) {
	src := "# header\n\nkey=value\n"
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != src {
		t.Errorf("round-trip failed:\ngot:  %q\nwant: %q", string(out), src)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i18n", "messages_fr.properties")
	f := New()
	f.Set("hello", "Bonjour")
	if err := f.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	back, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := back.Lookup("hello"); v != "Bonjour" {
		t.Fatalf("hello = %q", v)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, bundle, lang string
		ok                 bool
	}{
		{"messages.properties", "messages", "base", true},
		{"messages_fr.properties", "messages", "fr", true},
		{"messages_pt_BR.properties", "messages", "pt_BR", true},
		{"_fr.properties", "", "", false},
		{"messages_.properties", "", "", false},
		{"messages.txt", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bundle, lang, ok := SplitName(tc.name)
			if bundle != tc.bundle || lang != tc.lang || ok != tc.ok {
				t.Errorf("SplitName(%q) = %q, %q, %v", tc.name, bundle, lang, ok)
			}
		})
	}
	if strings.Contains(BaseLanguage, "_") {
		t.Fatal("base language must not look like a suffix")
	}
}
