package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "zh-Hans", want: "zh-Hans"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("english display", func(t *testing.T) {
		got := Resolve("fr", "")
		if got.Name != "French" || got.Code != "fr" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("regional flag", func(t *testing.T) {
		got := Resolve("pt_BR", "en")
		if got.Flag != "🇧🇷" {
			t.Fatalf("Flag = %q, want 🇧🇷", got.Flag)
		}
	})

	t.Run("localized display", func(t *testing.T) {
		got := Resolve("fr", "de")
		if got.Name != "Französisch" {
			t.Fatalf("Name = %q, want Französisch", got.Name)
		}
	})

	t.Run("base passthrough", func(t *testing.T) {
		got := Resolve("Base", "en")
		if got.Name != "" || got.Flag != "" {
			t.Fatalf("unexpected base result: %#v", got)
		}
	})
}

func TestTitle(t *testing.T) {
	if got := Title("fr", "en"); got != "French(fr)" {
		t.Fatalf("Title(fr) = %q, want French(fr)", got)
	}
	if got := Title("Base", "en"); got != "Base" {
		t.Fatalf("Title(Base) = %q, want Base", got)
	}
}

func TestFlagFromRegion(t *testing.T) {
	if got := flagFromRegion("us"); got != "🇺🇸" {
		t.Fatalf("flagFromRegion(us) = %q", got)
	}
	if got := flagFromRegion("USA"); got != "" {
		t.Fatalf("flagFromRegion(USA) = %q, want empty", got)
	}
	if got := flagFromRegion("1A"); got != "" {
		t.Fatalf("flagFromRegion(1A) = %q, want empty", got)
	}
}
