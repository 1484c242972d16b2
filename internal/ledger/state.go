package ledger

import (
	"AnchorLedger/internal/storage"
)

// readState adapts the store to the contract's State interface for the
// evaluate path. Writes are rejected: mutations only flow through the
// commit pipeline.
type readState struct {
	store *storage.Store
}

func (s readState) GetRecord(fileID string) ([]byte, error) {
	return s.store.Get(recordKey(fileID))
}

func (s readState) PutRecord(string, []byte) error {
	return ErrReadOnly
}

// batchState stages contract writes for one commit batch. Reads see
// staged writes first, then the committed world state, so transactions
// within a batch observe their predecessors.
type batchState struct {
	store  *storage.Store
	staged map[string][]byte
	pairs  []storage.KeyValue
}

func newBatchState(store *storage.Store) *batchState {
	return &batchState{
		store:  store,
		staged: make(map[string][]byte),
	}
}

func (b *batchState) GetRecord(fileID string) ([]byte, error) {
	if hash, ok := b.staged[fileID]; ok {
		return hash, nil
	}

	return b.store.Get(recordKey(fileID))
}

func (b *batchState) PutRecord(fileID string, hash []byte) error {
	b.staged[fileID] = hash
	b.appendPair(recordKey(fileID), hash)

	return nil
}

// appendPair stages an arbitrary key-value write for the batch.
// Later writes to the same key win at commit.
func (b *batchState) appendPair(key, value []byte) {
	b.pairs = append(b.pairs, storage.KeyValue{Key: key, Value: value})
}
