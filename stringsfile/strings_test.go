package stringsfile

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sample = "\xef\xbb\xbf/* File header */\n\n" +
	"/* Greeting on the home screen */\n" +
	"\"greeting\" = \"Hello, \\\"friend\\\"\";\n\n" +
	"// Button title\n" +
	"button.ok = \"OK\";\n" +
	"\"multi\" = \"line one\\nline two\";\n" +
	"\"unicode\" = \"caf\\U00E9\";\n"

func TestParse_Basic(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"greeting", "button.ok", "multi", "unicode"}) {
		t.Fatalf("Keys() = %v", got)
	}

	tests := []struct {
		key, value, comment string
	}{
		{"greeting", `Hello, "friend"`, "Greeting on the home screen"},
		{"button.ok", "OK", "Button title"},
		{"multi", "line one\nline two", ""},
		{"unicode", "café", ""},
	}
	for _, tc := range tests {
		v, c, ok := f.Lookup(tc.key)
		if !ok || v != tc.value || c != tc.comment {
			t.Errorf("Lookup(%q) = %q, %q, %v; want %q, %q", tc.key, v, c, ok, tc.value, tc.comment)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"missing semicolon": `"a" = "b"`,
		"missing equals":    `"a" "b";`,
		"unterminated":      `"a" = "b;`,
		"open comment":      `/* never closed`,
		"stray":             `"a" = "b"; @`,
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: Parse(%q) should fail", name, in)
		}
	}
}

func TestParse_ErrorLine(t *testing.T) {
	_, err := Parse([]byte("\"a\" = \"b\";\n\n\"c\" = ;\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error = %v, want line 3", err)
	}
}

func TestRoundTrip(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "/* File header */\n") {
		t.Fatalf("free comment lost:\n%s", out)
	}
	if !strings.Contains(string(out), "// Button title\n\"button.ok\" = \"OK\";") {
		t.Fatalf("line comment style lost:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	for _, key := range f.Keys() {
		v1, c1, _ := f.Lookup(key)
		v2, c2, ok := again.Lookup(key)
		if !ok || v1 != v2 || c1 != c2 {
			t.Fatalf("round trip %q: %q/%q -> %q/%q", key, v1, c1, v2, c2)
		}
	}
}

func TestRoundTrip_SurrogatePair(t *testing.T) {
	f, err := Parse([]byte(`"smile" = "\UD83D\UDE00";` + "\n" + `"lone" = "\UD83D!";` + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := f.Lookup("smile"); v != "😀" {
		t.Fatalf("smile = %q, want %q", v, "😀")
	}
	if v, _, _ := f.Lookup("lone"); v != "\uFFFD!" {
		t.Fatalf("lone = %q, want replacement char", v)
	}

	f.Set("other", "y")
	out, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"smile" = "😀";`) {
		t.Fatalf("emoji lost after an unrelated edit:\n%s", out)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if v, _, _ := again.Lookup("smile"); v != "😀" {
		t.Fatalf("smile after reparse = %q", v)
	}
}

func TestSetDeleteComment(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	f.Set("greeting", "Hi")
	f.Set("new.key", "")
	if !f.SetComment("new.key", "Added later") {
		t.Fatal("SetComment(new.key) = false")
	}
	if f.SetComment("nope", "x") {
		t.Fatal("SetComment on missing key should fail")
	}
	if !f.Delete("button.ok") {
		t.Fatal("Delete(button.ok) = false")
	}
	if f.Delete("button.ok") {
		t.Fatal("second Delete should report false")
	}

	if got := f.Keys(); !reflect.DeepEqual(got, []string{"greeting", "multi", "unicode", "new.key"}) {
		t.Fatalf("Keys() = %v", got)
	}
	if v, _, _ := f.Lookup("greeting"); v != "Hi" {
		t.Fatalf("greeting = %q", v)
	}
	if v, c, ok := f.Lookup("new.key"); !ok || v != "" || c != "Added later" {
		t.Fatalf("new.key = %q %q %v", v, c, ok)
	}

	out, _ := f.Marshal()
	if strings.Contains(string(out), "Button title") {
		t.Fatalf("comment of deleted key survived:\n%s", out)
	}
	if !strings.HasSuffix(string(out), "/* Added later */\n\"new.key\" = \"\";\n") {
		t.Fatalf("unexpected tail:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fr.lproj", "Localizable.strings")
	f := New()
	f.Set("a", "b")
	if err := f.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	back, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, ok := back.Lookup("a"); !ok || v != "b" {
		t.Fatalf("Lookup(a) = %q %v", v, ok)
	}
}

func TestLanguageFromDir(t *testing.T) {
	if lang, ok := LanguageFromDir("/x/pt-BR.lproj"); !ok || lang != "pt-BR" {
		t.Fatalf("LanguageFromDir = %q %v", lang, ok)
	}
	if _, ok := LanguageFromDir("/x/res"); ok {
		t.Fatal("res is not an lproj dir")
	}
	if _, ok := LanguageFromDir(".lproj"); ok {
		t.Fatal("empty language should be rejected")
	}
}
