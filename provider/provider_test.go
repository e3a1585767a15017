package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/locsheet/index"
	"github.com/minios-linux/locsheet/pofile"
	"github.com/minios-linux/locsheet/propfile"
	"github.com/minios-linux/locsheet/store"
	"github.com/minios-linux/locsheet/stringsfile"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func projectTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Base.lproj/Localizable.strings": "/* Greeting */\n\"hello\" = \"Hello\";\n\"bye\" = \"Bye\";\n",
		"fr.lproj/Localizable.strings":   "\"hello\" = \"Bonjour\";\n",
		"i18n/messages.properties":       "# Window title\ntitle=Main\n",
		"i18n/messages_de.properties":    "title=Haupt\n",
		"po/fr.po":                       "#. Menu entry\nmsgid \"Open\"\nmsgstr \"Ouvrir\"\n",
		"po/de.po":                       "msgid \"Open\"\nmsgstr \"\"\n",
		"po/app.pot":                     "msgid \"Open\"\nmsgstr \"\"\n",
		".git/fr.lproj/Ignored.strings":  "\"x\" = \"y\";\n",
		"README.md":                      "not a localization\n",
	})
	return root
}

func TestLocalizations_Scan(t *testing.T) {
	root := projectTree(t)
	groups, err := New().Localizations(context.Background(), root)
	if err != nil {
		t.Fatalf("Localizations: %v", err)
	}

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if want := []string{"Localizable.strings", "messages.properties", "po"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("groups = %v, want %v", names, want)
	}

	langs := map[string][]string{
		"Localizable.strings": {"Base", "fr"},
		"messages.properties": {"base", "de"},
		"po":                  {"de", "fr"},
	}
	for _, g := range groups {
		if got := g.Languages(); !reflect.DeepEqual(got, langs[g.Name]) {
			t.Errorf("%s languages = %v, want %v", g.Name, got, langs[g.Name])
		}
	}

	base := groups[0].Localization("Base")
	if base.Format != FormatStrings || base.Path != filepath.Join(root, "Base.lproj", "Localizable.strings") {
		t.Fatalf("Base localization = %+v", base)
	}
	if e := base.Entry("hello"); e == nil || e.Value != "Hello" || e.Message != "Greeting" {
		t.Fatalf("hello = %+v", e)
	}
	if e := groups[1].Localization("base").Entry("title"); e == nil || e.Message != "Window title" {
		t.Fatalf("title = %+v", e)
	}
	if e := groups[2].Localization("fr").Entry("Open"); e == nil || e.Value != "Ouvrir" || e.Message != "Menu entry" {
		t.Fatalf("Open = %+v", e)
	}
}

func TestLocalizations_QualifiesDuplicateNames(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"App/en.lproj/Localizable.strings":    "\"a\" = \"A\";\n",
		"Widget/en.lproj/Localizable.strings": "\"b\" = \"B\";\n",
	})
	groups, err := New().Localizations(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Name != "App/Localizable.strings" || groups[1].Name != "Widget/Localizable.strings" {
		t.Fatalf("groups = %v, %v", groups[0].Name, groups[1].Name)
	}
}

func TestLocalizations_EmptyAndMissing(t *testing.T) {
	p := New()
	groups, err := p.Localizations(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(groups) != 0 {
		t.Fatalf("missing root = %v, %v", groups, err)
	}
	groups, err = p.Localizations(context.Background(), t.TempDir())
	if err != nil || len(groups) != 0 {
		t.Fatalf("empty root = %v, %v", groups, err)
	}
}

func TestLocalizations_ParseErrorFailsScan(t *testing.T) {
	root := projectTree(t)
	writeFiles(t, root, map[string]string{
		"de.lproj/Localizable.strings": "\"broken\" = ;\n",
	})
	groups, err := New().Localizations(context.Background(), root)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if groups != nil {
		t.Fatalf("partial result returned: %v", groups)
	}
	if !strings.Contains(err.Error(), "de.lproj") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestLocalizations_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Localizations(ctx, projectTree(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWithFormats(t *testing.T) {
	formats, err := ByName([]string{"po"})
	if err != nil {
		t.Fatal(err)
	}
	groups, err := New(WithFormats(formats...)).Localizations(context.Background(), projectTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Name != "po" {
		t.Fatalf("groups = %v", groups)
	}

	if _, err := ByName([]string{"xliff"}); err == nil || !strings.Contains(err.Error(), "xliff") {
		t.Fatalf("ByName(xliff) err = %v", err)
	}
	all, _ := ByName(nil)
	if len(all) != len(FormatNames()) {
		t.Fatalf("ByName(nil) = %d formats", len(all))
	}
}

func TestMutations_Strings(t *testing.T) {
	root := projectTree(t)
	p := New()
	groups, err := p.Localizations(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	fr := groups[0].Localization("fr")

	msg := "Farewell"
	e, err := p.Update(fr, "bye", "Au revoir", &msg)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.Value != "Au revoir" || e.Message != "Farewell" || fr.Entry("bye") != e {
		t.Fatalf("entry = %+v", e)
	}

	added, err := p.AddKey(fr, "new", nil)
	if err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	again, err := p.AddKey(fr, "new", nil)
	if err != nil || again != added {
		t.Fatalf("AddKey on existing key = %p, %v; want %p", again, err, added)
	}

	if err := p.DeleteKey(fr, "hello"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if err := p.DeleteKey(fr, "missing"); err != nil {
		t.Fatalf("DeleteKey(missing): %v", err)
	}
	if got := fr.Keys(); !reflect.DeepEqual(got, []string{"bye", "new"}) {
		t.Fatalf("in-memory keys = %v", got)
	}

	disk, err := stringsfile.ParseFile(fr.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got := disk.Keys(); !reflect.DeepEqual(got, []string{"bye", "new"}) {
		t.Fatalf("on-disk keys = %v", got)
	}
	if v, c, _ := disk.Lookup("bye"); v != "Au revoir" || c != "Farewell" {
		t.Fatalf("on-disk bye = %q %q", v, c)
	}
}

func TestMutations_PropertiesAndPO(t *testing.T) {
	root := projectTree(t)
	p := New()
	groups, err := p.Localizations(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	de := groups[1].Localization("de")
	msg := "Shown in the title bar"
	if _, err := p.AddKey(de, "subtitle", &msg); err != nil {
		t.Fatal(err)
	}
	props, err := propfile.ParseFile(de.Path)
	if err != nil {
		t.Fatal(err)
	}
	if _, c, ok := props.Lookup("subtitle"); !ok || c != msg {
		t.Fatalf("subtitle comment = %q %v", c, ok)
	}

	poDe := groups[2].Localization("de")
	if _, err := p.Update(poDe, "Open", "Öffnen", nil); err != nil {
		t.Fatal(err)
	}
	po, err := pofile.ParseFile(poDe.Path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := po.Lookup("Open"); v != "Öffnen" {
		t.Fatalf("Open = %q", v)
	}
}

func TestMutations_ColdCacheAndUnknownFormat(t *testing.T) {
	root := projectTree(t)
	loc := &store.Localization{
		Language: "fr",
		Path:     filepath.Join(root, "fr.lproj", "Localizable.strings"),
		Format:   FormatStrings,
	}
	// A provider that never scanned still parses the file on first use.
	if _, err := New().Update(loc, "hello", "Salut", nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	disk, _ := stringsfile.ParseFile(loc.Path)
	if v, _, _ := disk.Lookup("hello"); v != "Salut" {
		t.Fatalf("hello = %q", v)
	}

	bogus := &store.Localization{Language: "fr", Path: loc.Path, Format: "xliff"}
	if _, err := New().AddKey(bogus, "k", nil); !errors.Is(err, store.ErrUnknownLocalization) {
		t.Fatalf("err = %v, want ErrUnknownLocalization", err)
	}
	if err := New().DeleteKey(nil, "k"); !errors.Is(err, store.ErrUnknownLocalization) {
		t.Fatalf("nil localization err = %v", err)
	}
}

func TestMutations_FailureKeepsEntry(t *testing.T) {
	root := projectTree(t)
	p := New()
	groups, err := p.Localizations(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	fr := groups[0].Localization("fr")
	fr.Path = filepath.Join(root, "missing-dir", "Localizable.strings")

	if _, err := p.Update(fr, "hello", "Salut", nil); err == nil {
		t.Fatal("expected an error for an unreachable path")
	}
	if e := fr.Entry("hello"); e.Value != "Bonjour" {
		t.Fatalf("entry changed despite failure: %+v", e)
	}
}

func TestLocalizations_ARB(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"lib/l10n/app_en.arb": `{"@@locale": "en", "title": "Home", "@title": {"description": "Tab label"}, "save": "Save"}`,
		"lib/l10n/app_ru.arb": `{"@@locale": "ru", "title": "Главная"}`,
	})
	p := New()
	groups, err := p.Localizations(context.Background(), root)
	if err != nil {
		t.Fatalf("Localizations: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "app.arb" {
		t.Fatalf("groups = %+v", groups)
	}
	en := groups[0].Localization("en")
	if e := en.Entry("title"); e == nil || e.Message != "Tab label" {
		t.Fatalf("en title = %+v", e)
	}

	ru := groups[0].Localization("ru")
	msg := "Button"
	if _, err := p.Update(ru, "save", "Сохранить", &msg); err != nil {
		t.Fatalf("Update: %v", err)
	}
	data, err := os.ReadFile(ru.Path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"save": "Сохранить"`, `"description": "Button"`, `"@@locale": "ru"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("app_ru.arb missing %q:\n%s", want, data)
		}
	}
}

func TestLocalizations_Android(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app/src/main/res/values/strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name" translatable="false">Notes</string>
    <!-- Toolbar action -->
    <string name="save">Save</string>
    <string name="cancel">Cancel</string>
    <string-array name="sizes">
        <item>Small</item>
        <item>Large</item>
    </string-array>
</resources>
`,
		"app/src/main/res/values-pt-rBR/strings.xml": `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="save">Salvar</string>
    <plurals name="notes">
        <item quantity="one">%d nota</item>
        <item quantity="other">%d notas</item>
    </plurals>
</resources>
`,
		"app/src/main/res/values-night/strings.xml": "<resources/>\n",
		"app/src/main/res/values/colors.xml":        "<resources/>\n",
	})
	p := New()
	groups, err := p.Localizations(context.Background(), root)
	if err != nil {
		t.Fatalf("Localizations: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "strings.xml" {
		t.Fatalf("groups = %+v", groups)
	}
	if got := groups[0].Languages(); !reflect.DeepEqual(got, []string{"base", "pt-BR"}) {
		t.Fatalf("languages = %v", got)
	}
	ix, err := index.Build(groups[0], "")
	if err != nil {
		t.Fatal(err)
	}
	if ix.Master() != "base" {
		t.Fatalf("Master() = %q, want base", ix.Master())
	}

	base := groups[0].Localization("base")
	if got := base.Keys(); !reflect.DeepEqual(got, []string{"save", "cancel"}) {
		t.Fatalf("base keys = %v", got)
	}
	if e := base.Entry("save"); e == nil || e.Message != "Toolbar action" {
		t.Fatalf("base save = %+v", e)
	}

	ptBR := groups[0].Localization("pt-BR")
	msg := "Dismiss the dialog"
	if _, err := p.AddKey(ptBR, "cancel", &msg); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	if _, err := p.Update(ptBR, "cancel", "Cancelar", nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	data, err := os.ReadFile(ptBR.Path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<!-- Dismiss the dialog -->\n    <string name=\"cancel\">Cancelar</string>",
		`<item quantity="other">%d notas</item>`,
		`<string name="save">Salvar</string>`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("values-pt-rBR/strings.xml missing %q:\n%s", want, data)
		}
	}

	if err := p.DeleteKey(base, "cancel"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	data, err = os.ReadFile(base.Path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<string name="app_name" translatable="false">Notes</string>`, "<item>Large</item>"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("values/strings.xml missing %q:\n%s", want, data)
		}
	}
	if strings.Contains(string(data), "cancel") {
		t.Fatalf("cancel not deleted:\n%s", data)
	}
}
