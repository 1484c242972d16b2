package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
)

// newTestStore creates a temporary store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)

	key := []byte("r:contract-42.pdf")
	value := []byte("ab12cd34")

	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get([]byte("r:never-stored.pdf"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("expected nil for missing key, got %q", got)
	}
}

func TestHas(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set([]byte("r:present"), []byte("h1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err := s.Has([]byte("r:present"))
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Error("expected Has to report true for existing key")
	}

	ok, err = s.Has([]byte("r:absent"))
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Error("expected Has to report false for missing key")
	}
}

func TestOverwrite(t *testing.T) {
	s := newTestStore(t)

	key := []byte("r:doc")

	if err := s.Set(key, []byte("h1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(key, []byte("h2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, []byte("h2")) {
		t.Errorf("expected overwritten value h2, got %q", got)
	}
}

func TestCommitBatch(t *testing.T) {
	s := newTestStore(t)

	pairs := []KeyValue{
		{Key: []byte("r:a"), Value: []byte("h-a")},
		{Key: []byte("r:b"), Value: []byte("h-b")},
		{Key: []byte("h:a:0"), Value: []byte("entry")},
	}

	if err := s.CommitBatch(pairs); err != nil {
		t.Fatalf("CommitBatch failed: %v", err)
	}

	for _, kv := range pairs {
		got, err := s.Get(kv.Key)
		if err != nil {
			t.Fatalf("Get %q failed: %v", kv.Key, err)
		}
		if !bytes.Equal(got, kv.Value) {
			t.Errorf("key %q: got %q, want %q", kv.Key, got, kv.Value)
		}
	}
}

func TestIteratePrefix(t *testing.T) {
	s := newTestStore(t)

	// Keys under two prefixes; only h: keys should be visited.
	for i := 0; i < 5; i++ {
		key := []byte(fmt.Sprintf("h:doc:%d", i))
		if err := s.Set(key, []byte{byte(i)}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := s.Set([]byte("r:doc"), []byte("current")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var visited []string
	err := s.IteratePrefix([]byte("h:doc:"), func(key, _ []byte) error {
		visited = append(visited, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	if len(visited) != 5 {
		t.Fatalf("expected 5 keys, got %d: %v", len(visited), visited)
	}

	// Lexicographic order
	for i := 1; i < len(visited); i++ {
		if visited[i-1] >= visited[i] {
			t.Errorf("keys not in order: %q >= %q", visited[i-1], visited[i])
		}
	}
}

func TestReopenPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if err := s.CommitBatch([]KeyValue{{Key: []byte("r:x"), Value: []byte("h")}}); err != nil {
		t.Fatalf("CommitBatch failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get([]byte("r:x"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("h")) {
		t.Errorf("expected value to survive reopen, got %q", got)
	}
}
