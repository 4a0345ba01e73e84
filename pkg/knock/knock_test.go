package knock

import (
	"testing"
	"time"
)

func testKey() *[KeySize]byte {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	return &key
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey()
	payload := EncodePayload(time.Now().Unix(), "deadbeef", "10.0.0.5")

	sealed, err := Seal(payload, key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(opened) != string(payload) {
		t.Fatalf("round-trip mismatch: got %q, want %q", opened, payload)
	}
}

func TestBitFlipFailsDecrypt(t *testing.T) {
	key := testKey()
	payload := EncodePayload(time.Now().Unix(), "deadbeef", "10.0.0.5")

	sealed, err := Seal(payload, key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	for i := range sealed {
		flipped := make([]byte, len(sealed))
		copy(flipped, sealed)
		flipped[i] ^= 0x01

		if _, err := Open(flipped, key); err == nil {
			t.Fatalf("expected decrypt failure with bit flip at byte %d", i)
		}
	}
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	key := testKey()
	var wrongKey [KeySize]byte
	copy(wrongKey[:], key[:])
	wrongKey[0] ^= 0xFF

	sealed, err := Seal(EncodePayload(time.Now().Unix(), "abc", "10.0.0.1"), key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := Open(sealed, &wrongKey); err == nil {
		t.Fatal("expected decrypt failure with wrong key")
	}
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte("1700000000:abcd1234:10.0.0.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Timestamp != 1700000000 || p.Nonce != "abcd1234" || p.ClaimedIP != "10.0.0.5" {
		t.Fatalf("unexpected parse result: %+v", p)
	}

	if _, err := ParsePayload([]byte("malformed")); err != ErrMalformedPayload {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestWithinReplayWindow(t *testing.T) {
	now := time.Now()
	if !WithinReplayWindow(now.Unix(), now) {
		t.Fatal("expected a fresh timestamp to be within the window")
	}
	if WithinReplayWindow(now.Add(-time.Hour).Unix(), now) {
		t.Fatal("expected an hour-old timestamp to be rejected")
	}
}

func TestRateLimiter(t *testing.T) {
	r := NewSourceRateLimiter()
	now := time.Now()

	if !r.Allow("10.0.0.5", now) {
		t.Fatal("first knock should be allowed")
	}
	if r.Allow("10.0.0.5", now.Add(3*time.Second)) {
		t.Fatal("second knock within 5s should be rate-limited")
	}
	if !r.Allow("10.0.0.5", now.Add(6*time.Second)) {
		t.Fatal("knock after rate limit window should be allowed")
	}
}
