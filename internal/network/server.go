package network

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"AnchorLedger/internal/logger"
)

// Handler answers one ledger request. Implementations must be safe for
// concurrent use: every stream is served on its own goroutine.
type Handler func(Request) Response

// Server accepts gateway connections and serves submit/evaluate requests.
type Server struct {
	privateKey ed25519.PrivateKey
	listenAddr string
	handler    Handler

	tlsConfig  *tls.Config
	quicConfig *quic.Config

	listener *quic.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a ledger-side QUIC server. Clients must present an
// ed25519 certificate; the key is the caller's enrolled identity.
func NewServer(privateKey ed25519.PrivateKey, listenAddr string, handler Handler) (*Server, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if listenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	cert, err := generateCertificate(privateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // We verify the public key manually
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		privateKey: privateKey,
		listenAddr: listenAddr,
		handler:    handler,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Addr returns the listener's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// PublicKey returns the server's ed25519 public key, which clients may
// pin in their connection profile.
func (s *Server) PublicKey() ed25519.PublicKey {
	return s.privateKey.Public().(ed25519.PublicKey)
}

// Start begins accepting connections.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.listenAddr, s.tlsConfig, s.quicConfig)
	if err != nil {
		return fmt.Errorf("listen on %s:\n%w", s.listenAddr, err)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info("ledger endpoint listening", "addr", listener.Addr().String())

	return nil
}

// Stop closes the listener and waits for in-flight streams to finish.
func (s *Server) Stop() {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return
		}

		identity, err := extractPublicKey(conn.ConnectionState().TLS)
		if err != nil {
			logger.Warn("rejecting connection without identity", "error", err)
			conn.CloseWithError(1, "client identity required")
			continue
		}

		logger.Debug("gateway connected",
			"identity", hex.EncodeToString(identity[:8]),
			"remote", conn.RemoteAddr().String(),
		)

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn accepts bidirectional streams on one connection and serves
// a request/response exchange on each.
func (s *Server) serveConn(conn *quic.Conn) {
	defer s.wg.Done()

	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveStream(stream)
		}()
	}
}

// serveStream handles one request/response exchange.
func (s *Server) serveStream(stream *quic.Stream) {
	defer stream.Close()

	var req Request
	if err := readMessage(stream, &req); err != nil {
		logger.Debug("bad request frame", "error", err)
		return
	}

	resp := s.handler(req)

	if err := writeMessage(stream, resp); err != nil {
		logger.Debug("write response failed", "error", err)
	}
}
