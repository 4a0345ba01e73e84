package leakhunter

import (
	"testing"

	"github.com/OP-88/Sentinyl/pkg/leak"
)

func TestClassifyKeyword(t *testing.T) {
	cases := map[string]leak.Kind{
		"password":    leak.KindPassword,
		"apikey":      leak.KindAPIKey,
		"api_key":     leak.KindAPIKey,
		"token":       leak.KindToken,
		"credentials": leak.KindCredential,
		"ssh_key":     leak.KindPrivateKey,
	}
	for keyword, want := range cases {
		if got := classifyKeyword(keyword); got != want {
			t.Errorf("classifyKeyword(%q) = %q, want %q", keyword, got, want)
		}
	}
}

func TestSecondaryRateLimitError(t *testing.T) {
	err := &secondaryRateLimitError{status: 403}
	if !isSecondaryRateLimit(err) {
		t.Fatal("expected isSecondaryRateLimit to recognize its own error type")
	}
	if isSecondaryRateLimit(nil) {
		t.Fatal("nil error must not be classified as a secondary rate limit")
	}
}
