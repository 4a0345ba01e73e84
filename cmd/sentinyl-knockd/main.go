// Command sentinyl-knockd is the Ghost Protocol knock server daemon: it
// listens for sealed UDP packets and opens a temporary firewall hole for
// every authenticated knock. See pkg/knock for the protocol itself.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OP-88/Sentinyl/internal/telemetry"
	"github.com/OP-88/Sentinyl/pkg/knock"
)

func main() {
	os.Exit(run())
}

func run() int {
	port := flag.Int("p", 62201, "UDP port to listen on")
	iface := flag.String("i", "", "network interface to bind (default: all)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logLevel := "info"
	if *verbose {
		logLevel = "debug"
	}
	logger := telemetry.NewLogger("text", logLevel)

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

	whitelist := knock.NewWhitelist(nil, logger)

	addr := fmt.Sprintf(":%d", *port)
	if *iface != "" {
		logger.Info("interface binding requested but not supported by UDP listen; binding all interfaces", "interface", *iface)
	}

	srv, err := knock.NewServer(addr, &key, whitelist, logger)
	if err != nil {
		logger.Error("starting knock server", "error", err)
		return 1
	}
	defer srv.Close()

	logger.Info("ghost protocol server listening", "port", *port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Serve(ctx); err != nil {
		logger.Error("knock server fatal error", "error", err)
		return 3
	}
	return 0
}
