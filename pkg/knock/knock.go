// Package knock implements spec.md §4.9's stealth single-packet
// authorization protocol: an authenticated UDP knock that whitelists the
// sender's IP in the host firewall for a short window.
package knock

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the required pre-shared key length.
const KeySize = 32

// nonceSize is secretbox's sealing-primitive nonce length, embedded by
// Seal at the front of the ciphertext.
const nonceSize = 24

// ErrDecryptFailed covers any malformed or inauthentic sealed box —
// spec.md §4.9 step 1 treats this as a silent drop, not a distinguishable
// error to the sender.
var ErrDecryptFailed = errors.New("knock: decrypt failed")

// ErrMalformedPayload covers a plaintext that doesn't parse as
// "<unix_ts>:<hex_nonce>:<claimed_ip>".
var ErrMalformedPayload = errors.New("knock: malformed payload")

// Payload is the decoded plaintext of a knock packet.
type Payload struct {
	Timestamp int64
	Nonce     string
	ClaimedIP string
}

// Seal encrypts payload as a sealed box under key, generating a fresh
// random 24-byte nonce and prepending it to the ciphertext.
func Seal(payload []byte, key *[KeySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], payload, &nonce, key), nil
}

// Open decrypts a sealed box produced by Seal. Any failure — truncated
// packet, wrong key, or a tampered ciphertext — reports ErrDecryptFailed,
// never a partial result (property P5: a single-bit ciphertext flip must
// fail to decrypt).
func Open(sealed []byte, key *[KeySize]byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// EncodePayload formats the knock plaintext "<unix_ts>:<hex_nonce>:<claimed_ip>".
func EncodePayload(ts int64, nonceHex, claimedIP string) []byte {
	return []byte(fmt.Sprintf("%d:%s:%s", ts, nonceHex, claimedIP))
}

// RandomNonceHex generates a fresh random hex-encoded nonce for the
// plaintext payload (distinct from the sealing primitive's own nonce).
func RandomNonceHex() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating payload nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ParsePayload parses the decrypted plaintext into its three fields.
func ParsePayload(plain []byte) (Payload, error) {
	parts := strings.SplitN(string(plain), ":", 3)
	if len(parts) != 3 {
		return Payload{}, ErrMalformedPayload
	}

	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}
	if parts[1] == "" || parts[2] == "" {
		return Payload{}, ErrMalformedPayload
	}

	return Payload{Timestamp: ts, Nonce: parts[1], ClaimedIP: parts[2]}, nil
}

// replayWindow is the maximum allowed clock skew between a knock's
// embedded timestamp and the server's wall clock.
const replayWindow = 10 * time.Second

// WithinReplayWindow reports whether ts is close enough to now to accept,
// per spec.md §4.9 step 3.
func WithinReplayWindow(ts int64, now time.Time) bool {
	delta := now.Unix() - ts
	if delta < 0 {
		delta = -delta
	}
	return delta <= int64(replayWindow.Seconds())
}
