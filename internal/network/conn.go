package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// defaultRequestTimeout caps a Request when the context has no deadline.
	defaultRequestTimeout = 30 * time.Second
)

// Conn is a single-use connection from the gateway to the ledger node.
// It is exclusively owned by one in-flight HTTP request: dial, request,
// close, never shared or retained between requests.
type Conn struct {
	conn   *quic.Conn
	closed atomic.Bool
}

// Dial connects to the ledger node at addr, authenticating with the
// caller's identity key. If serverKey is non-nil the node's certificate
// key must match it (a pinned connection profile), otherwise any server
// key is accepted.
func Dial(ctx context.Context, addr string, identity ed25519.PrivateKey, serverKey ed25519.PublicKey) (*Conn, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity key is required")
	}

	cert, err := generateCertificate(identity)
	if err != nil {
		return nil, fmt.Errorf("generate identity certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true, // We verify the public key manually
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout: 30 * time.Second,
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConfig, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}

	if serverKey != nil {
		remoteKey, err := extractPublicKey(conn.ConnectionState().TLS)
		if err != nil {
			conn.CloseWithError(1, "no server identity")
			return nil, fmt.Errorf("server identity: %w", err)
		}

		if !bytes.Equal(remoteKey, serverKey) {
			conn.CloseWithError(1, "server key mismatch")
			return nil, fmt.Errorf("server key does not match pinned key")
		}
	}

	return &Conn{conn: conn}, nil
}

// Request sends one request and waits for the response on a dedicated
// bidirectional stream. The context's deadline bounds the exchange.
func (c *Conn) Request(ctx context.Context, req Request) (Response, error) {
	if c.closed.Load() {
		return Response{}, fmt.Errorf("connection is closed")
	}

	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}
	stream.SetDeadline(deadline)

	if err := writeMessage(stream, req); err != nil {
		return Response{}, fmt.Errorf("write request:\n%w", err)
	}

	var resp Response
	if err := readMessage(stream, &resp); err != nil {
		return Response{}, fmt.Errorf("read response:\n%w", err)
	}

	return resp, nil
}

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	return c.conn.CloseWithError(0, "done")
}
