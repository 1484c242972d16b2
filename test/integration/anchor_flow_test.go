package integration

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"AnchorLedger/client"
	"AnchorLedger/internal/ledger"
)

// TestAnchorFlow exercises the full stack: client -> gateway HTTP ->
// QUIC -> ledger node, and back.
func TestAnchorFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dir := t.TempDir()

	ledgerNode := startLedgerNode(t, dir)
	httpAddr := startGateway(t, dir, ledgerNode, "appUser")

	cli, err := client.NewClient(httpAddr)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	// Anchor a file and read it back.
	path := filepath.Join(dir, "contract.pdf")
	if err := os.WriteFile(path, []byte("executed agreement"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	confirmation, err := cli.AnchorFile("contract.pdf", path)
	if err != nil {
		t.Fatalf("anchor failed: %v", err)
	}
	if !strings.Contains(confirmation, "contract.pdf") {
		t.Errorf("confirmation should name the file, got %q", confirmation)
	}

	wantHash, err := client.HashFile(path)
	if err != nil {
		t.Fatalf("failed to hash file: %v", err)
	}

	gotHash, err := cli.Query("contract.pdf")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if gotHash != wantHash {
		t.Errorf("queried hash %q does not match anchored hash %q", gotHash, wantHash)
	}

	// Unmodified file verifies; tampered file does not.
	ok, err := cli.VerifyFile("contract.pdf", path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("unchanged file should verify")
	}

	if err := os.WriteFile(path, []byte("executed agreement, altered"), 0o644); err != nil {
		t.Fatalf("failed to tamper with file: %v", err)
	}

	ok, err = cli.VerifyFile("contract.pdf", path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("tampered file must not verify")
	}

	// Re-anchoring the altered file keeps the full history.
	if _, err := cli.AnchorFile("contract.pdf", path); err != nil {
		t.Fatalf("re-anchor failed: %v", err)
	}

	history, err := cli.History("contract.pdf")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].FileHash != wantHash {
		t.Errorf("first entry should carry the original hash, got %q", history[0].FileHash)
	}

	// Unknown files surface a typed error.
	if _, err := cli.Query("never-stored.pdf"); !errors.Is(err, client.ErrNotAnchored) {
		t.Errorf("expected ErrNotAnchored, got %v", err)
	}

	// Every commit left a verifiable seal behind.
	for height := uint64(1); height <= ledgerNode.Ledger.Height(); height++ {
		seal, err := ledgerNode.Ledger.SealAt(height)
		if err != nil {
			t.Fatalf("failed to load seal at height %d: %v", height, err)
		}
		if !ledger.VerifySeal(seal, ledgerNode.Ledger.SealPublicKey()) {
			t.Errorf("seal at height %d does not verify", height)
		}
	}
}

// TestGatewayWithoutIdentity checks that a gateway whose wallet lacks
// the configured identity rejects requests with 401.
func TestGatewayWithoutIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dir := t.TempDir()

	ledgerNode := startLedgerNode(t, dir)
	httpAddr := startGateway(t, dir, ledgerNode, "")

	cli, err := client.NewClient(httpAddr)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = cli.Store("doc", "hash")
	if err == nil {
		t.Fatal("expected store to fail without an enrolled identity")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected a 401 failure, got %v", err)
	}
}
