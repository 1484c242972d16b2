package node

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"AnchorLedger/internal/ledger"
	"AnchorLedger/internal/network"
	"AnchorLedger/internal/storage"
)

// newTestLedger opens a ledger over a temporary store.
func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sealKey, err := ledger.DeriveSealKey(priv)
	if err != nil {
		t.Fatalf("derive seal key: %v", err)
	}

	l, err := ledger.Open(store, sealKey)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(l.Close)

	return l
}

func TestHandlerRoundTrip(t *testing.T) {
	handler := Handler(newTestLedger(t))

	resp := handler(network.Request{
		Op:       network.OpStore,
		FileID:   "contract-42.pdf",
		FileHash: "ab12cd34",
	})
	if resp.Status != network.StatusOK {
		t.Fatalf("store status %q: %s", resp.Status, resp.Message)
	}
	if resp.TxID == "" || resp.Height == 0 {
		t.Error("store response missing transaction ID or height")
	}

	resp = handler(network.Request{Op: network.OpQuery, FileID: "contract-42.pdf"})
	if resp.Status != network.StatusOK {
		t.Fatalf("query status %q: %s", resp.Status, resp.Message)
	}
	if resp.Payload != "ab12cd34" {
		t.Errorf("query payload %q, want %q", resp.Payload, "ab12cd34")
	}

	resp = handler(network.Request{
		Op:          network.OpVerify,
		FileID:      "contract-42.pdf",
		HashToCheck: "ab12cd34",
	})
	if resp.Status != network.StatusOK || resp.Payload != "true" {
		t.Errorf("verify: status %q payload %q, want ok/true", resp.Status, resp.Payload)
	}

	resp = handler(network.Request{
		Op:          network.OpVerify,
		FileID:      "contract-42.pdf",
		HashToCheck: "wronghash",
	})
	if resp.Status != network.StatusOK || resp.Payload != "false" {
		t.Errorf("negative verify: status %q payload %q, want ok/false", resp.Status, resp.Payload)
	}
}

func TestHandlerNotFound(t *testing.T) {
	handler := Handler(newTestLedger(t))

	// Absence is a coded status on every read operation, never a
	// hash-shaped payload or a false verdict.
	for _, op := range []string{network.OpQuery, network.OpVerify, network.OpHistory} {
		resp := handler(network.Request{Op: op, FileID: "never-stored.pdf", HashToCheck: "x"})
		if resp.Status != network.StatusNotFound {
			t.Errorf("%s: status %q, want %q", op, resp.Status, network.StatusNotFound)
		}
		if resp.Payload != "" {
			t.Errorf("%s: unexpected payload %q on not-found", op, resp.Payload)
		}
	}
}

func TestHandlerInvalid(t *testing.T) {
	handler := Handler(newTestLedger(t))

	resp := handler(network.Request{Op: network.OpStore, FileID: "", FileHash: "h"})
	if resp.Status != network.StatusInvalid {
		t.Errorf("empty fileId: status %q, want %q", resp.Status, network.StatusInvalid)
	}

	resp = handler(network.Request{Op: "drop", FileID: "x"})
	if resp.Status != network.StatusInvalid {
		t.Errorf("unknown op: status %q, want %q", resp.Status, network.StatusInvalid)
	}
}

func TestHandlerHistory(t *testing.T) {
	handler := Handler(newTestLedger(t))

	for _, hash := range []string{"h1", "h2"} {
		resp := handler(network.Request{Op: network.OpStore, FileID: "doc", FileHash: hash})
		if resp.Status != network.StatusOK {
			t.Fatalf("store %q failed: %s", hash, resp.Message)
		}
	}

	resp := handler(network.Request{Op: network.OpHistory, FileID: "doc"})
	if resp.Status != network.StatusOK {
		t.Fatalf("history status %q: %s", resp.Status, resp.Message)
	}

	var entries []ledger.HistoryEntry
	if err := json.Unmarshal([]byte(resp.Payload), &entries); err != nil {
		t.Fatalf("history payload is not valid JSON: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].FileHash != "h1" || entries[1].FileHash != "h2" {
		t.Errorf("history out of order: %+v", entries)
	}
}

func TestAdminStatus(t *testing.T) {
	l := newTestLedger(t)
	handler := Handler(l)

	resp := handler(network.Request{Op: network.OpStore, FileID: "a.pdf", FileHash: "h"})
	if resp.Status != network.StatusOK {
		t.Fatalf("store failed: %s", resp.Message)
	}

	admin := NewAdminServer(":0", l)

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()

	admin.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var status struct {
		Height       uint64 `json:"height"`
		Records      int    `json:"records"`
		SealKey      string `json:"sealKey"`
		LastSealRoot string `json:"lastSealRoot"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if status.Height == 0 {
		t.Error("expected non-zero height after a commit")
	}
	if status.Records != 1 {
		t.Errorf("expected 1 record, got %d", status.Records)
	}
	if status.SealKey == "" {
		t.Error("expected seal key in status")
	}
	if status.LastSealRoot == "" {
		t.Error("expected last seal root after a commit")
	}
}

func TestAdminSnapshot(t *testing.T) {
	l := newTestLedger(t)
	handler := Handler(l)

	resp := handler(network.Request{Op: network.OpStore, FileID: "a.pdf", FileHash: "h"})
	if resp.Status != network.StatusOK {
		t.Fatalf("store failed: %s", resp.Message)
	}

	admin := NewAdminServer(":0", l)

	req := httptest.NewRequest("GET", "/snapshot", nil)
	w := httptest.NewRecorder()

	admin.handleSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("expected snapshot bytes")
	}

	// The exported snapshot restores into a fresh store.
	store, err := storage.Open(filepath.Join(t.TempDir(), "restored"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if err := ledger.RestoreSnapshot(store, w.Body.Bytes()); err != nil {
		t.Fatalf("restore snapshot: %v", err)
	}
}
