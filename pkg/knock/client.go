package knock

import (
	"context"
	"fmt"
	"net"
	"time"
)

// dialTimeout bounds the UDP dial (which, for datagram sockets, only
// resolves the address and never blocks on the network).
const dialTimeout = 5 * time.Second

// Send seals and sends a single knock packet to serverAddr, claiming
// clientIP as the authorized address. No response is ever read back.
func Send(ctx context.Context, serverAddr, clientIP string, key *[KeySize]byte) error {
	nonceHex, err := RandomNonceHex()
	if err != nil {
		return fmt.Errorf("generating payload nonce: %w", err)
	}

	payload := EncodePayload(time.Now().Unix(), nonceHex, clientIP)
	sealed, err := Seal(payload, key)
	if err != nil {
		return fmt.Errorf("sealing knock payload: %w", err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "udp", serverAddr)
	if err != nil {
		return fmt.Errorf("dialing knock server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write(sealed); err != nil {
		return fmt.Errorf("sending knock packet: %w", err)
	}
	return nil
}
