package fuzzer

import (
	"strings"
	"testing"
)

func TestGenerateExcludesOriginal(t *testing.T) {
	f := New("examplebank.com")
	for _, v := range f.Generate() {
		if v == "examplebank.com" {
			t.Fatalf("generated set contains the original domain")
		}
	}
}

func TestGenerateShapeInvariant(t *testing.T) {
	for _, d := range []string{"examplebank.com", "shop.io", "a.dev"} {
		f := New(d)
		for _, v := range f.Generate() {
			if strings.Count(v, ".") != 1 {
				t.Fatalf("%q: expected exactly one dot, got %d", v, strings.Count(v, "."))
			}
			parts := strings.SplitN(v, ".", 2)
			if parts[0] == "" {
				t.Fatalf("%q: empty label", v)
			}
		}
	}
}

func TestGenerateStableSize(t *testing.T) {
	f := New("examplebank.com")
	first := len(f.Generate())
	for i := 0; i < 5; i++ {
		if got := len(New("examplebank.com").Generate()); got != first {
			t.Fatalf("size not stable across runs: got %d, want %d", got, first)
		}
	}
}

func TestGenerateKnownVariants(t *testing.T) {
	f := New("examplebank.com")
	set := make(map[string]bool)
	for _, v := range f.Generate() {
		set[v] = true
	}

	for _, want := range []string{
		"exampebank.com",       // omission
		"eexamplebank.com",     // repetition
		"xeamplebank.com",      // transposition
		"3xamplebank.com",      // homoglyph
		"wxamplebank.com",      // keyboard
		"examplebank.net",      // tld swap
		"example-bank.com",     // hyphenation
		"www-examplebank.com",  // subdomain prefix
	} {
		if !set[want] {
			t.Errorf("expected variant %q to be generated", want)
		}
	}
}

func TestDefaultTLD(t *testing.T) {
	f := New("nodotshere")
	if f.tld != "com" {
		t.Fatalf("expected default tld com, got %q", f.tld)
	}
	for _, v := range f.Generate() {
		// TLD swap is the only family that replaces the default tld, and it
		// keeps the label unchanged.
		if !strings.HasSuffix(v, ".com") && !strings.HasPrefix(v, "nodotshere.") {
			t.Fatalf("expected default tld com, got %q", v)
		}
	}
}
