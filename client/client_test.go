package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// startFakeGateway runs an in-memory gateway backed by a map of
// fileId -> anchored hash.
func startFakeGateway(t *testing.T) (*Client, map[string]string) {
	t.Helper()

	records := make(map[string]string)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("POST /store", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileID   string `json:"fileId"`
			FileHash string `json:"fileHash"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		records[body.FileID] = body.FileHash
		fmt.Fprintf(w, "stored file hash for %s (tx 00ff, height 1)\n", body.FileID)
	})

	mux.HandleFunc("GET /query/{fileId}", func(w http.ResponseWriter, r *http.Request) {
		fileID := r.PathValue("fileId")

		hash, ok := records[fileID]
		if !ok {
			writeNotFound(w, fileID)
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"fileId":     fileID,
			"storedHash": hash,
		})
	})

	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileID      string `json:"fileId"`
			HashToCheck string `json:"hashToCheck"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		hash, ok := records[body.FileID]
		if !ok {
			writeNotFound(w, body.FileID)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"fileId":   body.FileID,
			"verified": hash == body.HashToCheck,
			"message":  "checked",
		})
	})

	mux.HandleFunc("GET /history/{fileId}", func(w http.ResponseWriter, r *http.Request) {
		fileID := r.PathValue("fileId")

		hash, ok := records[fileID]
		if !ok {
			writeNotFound(w, fileID)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"fileId": fileID,
			"history": []HistoryEntry{
				{FileID: fileID, FileHash: "old-" + hash, TxID: "aa", Height: 1},
				{FileID: fileID, FileHash: hash, TxID: "bb", Height: 2},
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(strings.TrimPrefix(server.URL, "http://"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return c, records
}

func writeNotFound(w http.ResponseWriter, fileID string) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"fileId":  fileID,
		"message": "no information found for " + fileID,
	})
}

func TestHashBytes(t *testing.T) {
	h1 := HashBytes([]byte("contract body"))
	h2 := HashBytes([]byte("contract body"))

	if h1 != h2 {
		t.Error("hashing the same bytes must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 == HashBytes([]byte("different body")) {
		t.Error("different inputs must not collide")
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	data := []byte("signed agreement, version 3")

	path := filepath.Join(t.TempDir(), "agreement.txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("failed to hash file: %v", err)
	}

	if fromFile != HashBytes(data) {
		t.Error("file hash must match in-memory hash of the same bytes")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStoreQueryVerify(t *testing.T) {
	c, _ := startFakeGateway(t)

	confirmation, err := c.Store("deal.pdf", "cafe01")
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if !strings.Contains(confirmation, "deal.pdf") {
		t.Errorf("confirmation should name the file, got %q", confirmation)
	}

	hash, err := c.Query("deal.pdf")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if hash != "cafe01" {
		t.Errorf("expected cafe01, got %q", hash)
	}

	ok, err := c.Verify("deal.pdf", "cafe01")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("expected verified true for matching hash")
	}

	ok, err = c.Verify("deal.pdf", "tampered")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("expected verified false for wrong hash")
	}
}

func TestQueryNotAnchored(t *testing.T) {
	c, _ := startFakeGateway(t)

	if _, err := c.Query("never-stored"); !errors.Is(err, ErrNotAnchored) {
		t.Fatalf("expected ErrNotAnchored, got %v", err)
	}

	if _, err := c.Verify("never-stored", "x"); !errors.Is(err, ErrNotAnchored) {
		t.Fatalf("expected ErrNotAnchored from verify, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	c, _ := startFakeGateway(t)

	if _, err := c.Store("doc", "h2"); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	history, err := c.History("doc")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[1].FileHash != "h2" {
		t.Errorf("last entry should carry the current hash, got %q", history[1].FileHash)
	}

	if _, err := c.History("never-stored"); !errors.Is(err, ErrNotAnchored) {
		t.Fatalf("expected ErrNotAnchored, got %v", err)
	}
}

func TestAnchorAndVerifyFile(t *testing.T) {
	c, records := startFakeGateway(t)

	path := filepath.Join(t.TempDir(), "contract.pdf")
	if err := os.WriteFile(path, []byte("final draft"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := c.AnchorFile("contract.pdf", path); err != nil {
		t.Fatalf("anchor failed: %v", err)
	}

	if records["contract.pdf"] != HashBytes([]byte("final draft")) {
		t.Error("anchored hash should be the file's hash")
	}

	ok, err := c.VerifyFile("contract.pdf", path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("unchanged file should verify")
	}

	if err := os.WriteFile(path, []byte("final draft, amended"), 0o644); err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}

	ok, err = c.VerifyFile("contract.pdf", path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("modified file must not verify")
	}
}

func TestNewClientUnreachable(t *testing.T) {
	if _, err := NewClient("127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable gateway")
	}
}
