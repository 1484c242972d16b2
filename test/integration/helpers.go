package integration

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"AnchorLedger/internal/gateway"
	"AnchorLedger/internal/ledger"
	"AnchorLedger/internal/network"
	"AnchorLedger/internal/node"
	"AnchorLedger/internal/storage"
	"AnchorLedger/internal/wallet"
)

const (
	// gatewayReadyTimeout is how long to wait for the gateway HTTP
	// server to start answering.
	gatewayReadyTimeout = 5 * time.Second
)

// TestLedger is an in-process ledger node listening on QUIC.
type TestLedger struct {
	Ledger *ledger.Ledger
	Addr   string // Addr is the bound QUIC address
	PubKey ed25519.PublicKey
}

// startLedgerNode runs a full ledger node on an ephemeral port.
func startLedgerNode(t *testing.T, dir string) *TestLedger {
	t.Helper()

	store, err := storage.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate node key: %v", err)
	}

	sealKey, err := ledger.DeriveSealKey(priv)
	if err != nil {
		t.Fatalf("failed to derive seal key: %v", err)
	}

	l, err := ledger.Open(store, sealKey)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(l.Close)

	server, err := network.NewServer(priv, "127.0.0.1:0", node.Handler(l))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)

	return &TestLedger{
		Ledger: l,
		Addr:   server.Addr(),
		PubKey: server.PublicKey(),
	}
}

// startGateway runs a gateway on an ephemeral port, pointed at the given
// ledger, and returns the bound address. The identity label is enrolled
// in a fresh wallet unless empty.
func startGateway(t *testing.T, dir string, ledgerNode *TestLedger, identity string) string {
	t.Helper()

	w, err := wallet.Open(filepath.Join(dir, "wallet.db"))
	if err != nil {
		t.Fatalf("failed to open wallet: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if identity != "" {
		if _, err := w.Enroll(identity); err != nil {
			t.Fatalf("failed to enroll identity: %v", err)
		}
	}

	profilePath := filepath.Join(dir, "connection.json")
	writeProfile(t, profilePath, ledgerNode)

	connector := &gateway.ProfileConnector{
		ProfilePath:   profilePath,
		Wallet:        w,
		IdentityLabel: "appUser",
	}

	server := gateway.New("127.0.0.1:0", connector, 0)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start gateway: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	httpAddr := server.Addr()
	waitForGateway(t, httpAddr)

	return httpAddr
}

// writeProfile writes a connection profile pinning the node's key.
func writeProfile(t *testing.T, path string, ledgerNode *TestLedger) {
	t.Helper()

	profile := map[string]string{
		"address":   ledgerNode.Addr,
		"serverKey": hex.EncodeToString(ledgerNode.PubKey),
	}

	data, err := json.Marshal(profile)
	if err != nil {
		t.Fatalf("failed to marshal profile: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
}

// waitForGateway polls /health until the gateway answers.
func waitForGateway(t *testing.T, httpAddr string) {
	t.Helper()

	deadline := time.Now().Add(gatewayReadyTimeout)
	url := fmt.Sprintf("http://%s/health", httpAddr)

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("gateway at %s did not become ready", httpAddr)
}
