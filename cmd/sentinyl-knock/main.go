// Command sentinyl-knock sends a single Ghost Protocol knock packet,
// requesting temporary firewall access for a claimed client IP. See
// pkg/knock for the protocol itself.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/OP-88/Sentinyl/pkg/knock"
)

func main() {
	os.Exit(run())
}

func run() int {
	server := flag.String("s", "", "knock server address (host:port)")
	port := flag.Int("p", 62201, "UDP port the knock server listens on")
	clientIP := flag.String("i", "", "client IP to claim (default: auto-detected outbound address)")
	verbose := flag.Bool("v", false, "verbose output")
	keygen := flag.Bool("keygen", false, "generate a new GHOST_SECRET_KEY and exit")
	flag.Parse()

	if *keygen {
		return runKeygen()
	}

	if *server == "" {
		fmt.Fprintln(os.Stderr, "error: -s SERVER is required")
		return 1
	}

	keyHex := os.Getenv("GHOST_SECRET_KEY")
	if keyHex == "" {
		fmt.Fprintln(os.Stderr, "error: GHOST_SECRET_KEY environment variable not set")
		return 1
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil || len(keyBytes) != knock.KeySize {
		fmt.Fprintf(os.Stderr, "error: GHOST_SECRET_KEY must be a %d-byte hex string\n", knock.KeySize)
		return 1
	}
	var key [knock.KeySize]byte
	copy(key[:], keyBytes)

	ip := *clientIP
	if ip == "" {
		ip, err = localOutboundIP()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not auto-detect client IP: %v\n", err)
			return 2
		}
	}

	addr := fmt.Sprintf("%s:%d", *server, *port)
	if *verbose {
		fmt.Printf("sending knock to %s claiming %s\n", addr, ip)
	}

	if err := knock.Send(context.Background(), addr, ip, &key); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to send knock: %v\n", err)
		return 3
	}

	if *verbose {
		fmt.Println("knock sent")
	}
	return 0
}

// runKeygen prints a fresh hex-encoded GHOST_SECRET_KEY. It never reads or
// writes the key anywhere other than stdout — the operator is responsible
// for distributing it to both ends of the knock out of band.
func runKeygen() int {
	key := make([]byte, knock.KeySize)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "error: generating key: %v\n", err)
		return 3
	}
	fmt.Printf("GHOST_SECRET_KEY=%s\n", hex.EncodeToString(key))
	return 0
}

// localOutboundIP finds the local address the OS would use to reach the
// public internet, by opening (but never writing to) a UDP socket toward
// a well-known external address.
func localOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
