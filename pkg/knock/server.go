package knock

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// maxPacketSize bounds the UDP read buffer; knock payloads are tiny.
const maxPacketSize = 512

// Server sniffs inbound UDP knock packets and authorizes well-formed,
// fresh, non-replayed, rate-compliant ones. No response is ever sent —
// invalid knocks are indistinguishable from no service (spec.md §4.9).
type Server struct {
	conn      *net.UDPConn
	key       *[KeySize]byte
	limiter   *SourceRateLimiter
	whitelist *Whitelist
	logger    *slog.Logger
	clock     func() time.Time
}

// NewServer binds a UDP listener on addr (e.g. ":62201") and returns a
// Server ready to Serve.
func NewServer(addr string, key *[KeySize]byte, whitelist *Whitelist, logger *slog.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	return &Server{
		conn:      conn,
		key:       key,
		limiter:   NewSourceRateLimiter(),
		whitelist: whitelist,
		logger:    logger,
		clock:     time.Now,
	}, nil
}

// Close releases the UDP socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Serve reads packets until ctx is cancelled or the socket errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	buf := make([]byte, maxPacketSize)
	for {
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		packet := make([]byte, n)
		copy(packet, buf[:n])
		s.handle(ctx, packet, src)
	}
}

// handle processes a single packet per spec.md §4.9's six steps. Every
// rejection is a silent drop: no response, no distinguishable error.
func (s *Server) handle(ctx context.Context, packet []byte, src *net.UDPAddr) {
	plain, err := Open(packet, s.key)
	if err != nil {
		return
	}

	payload, err := ParsePayload(plain)
	if err != nil {
		return
	}

	now := s.clock()
	if !WithinReplayWindow(payload.Timestamp, now) {
		return
	}

	if payload.ClaimedIP != src.IP.String() {
		return
	}

	if !s.limiter.Allow(src.IP.String(), now) {
		return
	}

	if err := s.whitelist.Insert(ctx, payload.ClaimedIP); err != nil {
		s.logger.Warn("failed to authorize knock", "ip", payload.ClaimedIP, "error", err)
	}
}
