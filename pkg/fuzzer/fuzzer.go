// Package fuzzer implements spec.md §4.3.1's DomainFuzzer: deterministic
// generation of typosquat candidate domains from eight permutation
// families.
package fuzzer

import "strings"

// commonTLDs is the swap target list, in the order spec.md §4.3.1 gives
// them.
var commonTLDs = []string{
	"com", "net", "org", "co", "io", "app", "dev", "ai",
	"info", "biz", "online", "site", "tech", "store",
}

// homoglyphs maps a character to its visually similar substitutes.
var homoglyphs = map[byte][]string{
	'a': {"4", "@"},
	'e': {"3"},
	'i': {"1", "l"},
	'o': {"0"},
	's': {"5", "$"},
	'l': {"1", "i"},
	'g': {"9"},
	'b': {"8"},
}

// keyboardNeighbors maps a QWERTY key to its adjacent keys, nearest first.
// Only the first two are used per spec.md §4.3.1 family 5.
var keyboardNeighbors = map[byte][]string{
	'q': {"w", "a"}, 'w': {"q", "e", "s"}, 'e': {"w", "r", "d"},
	'r': {"e", "t", "f"}, 't': {"r", "y", "g"}, 'y': {"t", "u", "h"},
	'u': {"y", "i", "j"}, 'i': {"u", "o", "k"}, 'o': {"i", "p", "l"},
	'p': {"o", "l"}, 'a': {"q", "s", "z"}, 's': {"a", "w", "d", "x"},
	'd': {"s", "e", "f", "c"}, 'f': {"d", "r", "g", "v"},
	'g': {"f", "t", "h", "b"}, 'h': {"g", "y", "j", "n"},
	'j': {"h", "u", "k", "m"}, 'k': {"j", "i", "l"}, 'l': {"k", "o"},
	'z': {"a", "x"}, 'x': {"z", "s", "c"}, 'c': {"x", "d", "v"},
	'v': {"c", "f", "b"}, 'b': {"v", "g", "n"}, 'n': {"b", "h", "m"},
	'm': {"n", "j"},
}

// subdomainPrefixes is the list spec.md §4.3.1 family 8 names.
var subdomainPrefixes = []string{"www", "secure", "login", "account", "verify", "update"}

// Fuzzer generates typosquat candidates for a single target domain.
type Fuzzer struct {
	domain string
	label  string
	tld    string
}

// New splits domain into (label, tld) on the last dot, defaulting tld to
// "com" when there is none.
func New(domain string) *Fuzzer {
	d := strings.ToLower(strings.TrimSpace(domain))

	label, tld := d, "com"
	if i := strings.LastIndex(d, "."); i >= 0 {
		label, tld = d[:i], d[i+1:]
	}

	return &Fuzzer{domain: d, label: label, tld: tld}
}

// Generate returns the deduplicated union of all eight permutation
// families, with the original domain removed. Property P3: never contains
// the input domain; every element has exactly one dot and a non-empty
// label.
func (f *Fuzzer) Generate() []string {
	set := make(map[string]struct{})

	for _, fam := range [][]string{
		f.omission(),
		f.repetition(),
		f.transposition(),
		f.homoglyph(),
		f.keyboardTypo(),
		f.tldSwap(),
		f.hyphenation(),
		f.subdomainPrefix(),
	} {
		for _, v := range fam {
			set[v] = struct{}{}
		}
	}

	delete(set, f.domain)

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func (f *Fuzzer) join(label string) string {
	return label + "." + f.tld
}

// omission drops each character in turn, keeping labels of length >= 3.
func (f *Fuzzer) omission() []string {
	var out []string
	for i := range f.label {
		variant := f.label[:i] + f.label[i+1:]
		if len(variant) > 2 {
			out = append(out, f.join(variant))
		}
	}
	return out
}

// repetition duplicates each character in turn.
func (f *Fuzzer) repetition() []string {
	var out []string
	for i := range f.label {
		variant := f.label[:i] + string(f.label[i]) + f.label[i:]
		out = append(out, f.join(variant))
	}
	return out
}

// transposition swaps each adjacent pair.
func (f *Fuzzer) transposition() []string {
	var out []string
	for i := 0; i < len(f.label)-1; i++ {
		chars := []byte(f.label)
		chars[i], chars[i+1] = chars[i+1], chars[i]
		out = append(out, f.join(string(chars)))
	}
	return out
}

// homoglyph substitutes each character with its visually similar
// alternatives.
func (f *Fuzzer) homoglyph() []string {
	var out []string
	for i := 0; i < len(f.label); i++ {
		subs, ok := homoglyphs[f.label[i]]
		if !ok {
			continue
		}
		for _, sub := range subs {
			variant := f.label[:i] + sub + f.label[i+1:]
			out = append(out, f.join(variant))
		}
	}
	return out
}

// keyboardTypo substitutes each character with its first two QWERTY
// neighbors.
func (f *Fuzzer) keyboardTypo() []string {
	var out []string
	for i := 0; i < len(f.label); i++ {
		neighbors, ok := keyboardNeighbors[f.label[i]]
		if !ok {
			continue
		}
		limit := 2
		if len(neighbors) < limit {
			limit = len(neighbors)
		}
		for _, n := range neighbors[:limit] {
			variant := f.label[:i] + n + f.label[i+1:]
			out = append(out, f.join(variant))
		}
	}
	return out
}

// tldSwap replaces the tld with each common alternative that differs from
// the original.
func (f *Fuzzer) tldSwap() []string {
	var out []string
	for _, tld := range commonTLDs {
		if tld != f.tld {
			out = append(out, f.label+"."+tld)
		}
	}
	return out
}

// hyphenation inserts a hyphen at positions 2 through len-1, for labels of
// length >= 4.
func (f *Fuzzer) hyphenation() []string {
	var out []string
	if len(f.label) < 4 {
		return out
	}
	for i := 2; i < len(f.label)-1; i++ {
		variant := f.label[:i] + "-" + f.label[i:]
		out = append(out, f.join(variant))
	}
	return out
}

// subdomainPrefix prepends each configured prefix, with and without a
// hyphen.
func (f *Fuzzer) subdomainPrefix() []string {
	var out []string
	for _, p := range subdomainPrefixes {
		out = append(out, f.join(p+"-"+f.label))
		out = append(out, f.join(p+f.label))
	}
	return out
}
