// Package ledger runs the ordering and commit pipeline of the anchoring
// node. Store transactions are serialized through a single commit loop,
// applied to the world state in atomic batches, and acknowledged only
// after the batch is durable. Query and verify evaluate directly against
// the world state and never enter the pipeline.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"AnchorLedger/internal/contract"
	"AnchorLedger/internal/logger"
	"AnchorLedger/internal/storage"
)

const (
	// commitInterval is how often pending transactions are committed.
	commitInterval = 50 * time.Millisecond

	// submitQueueSize bounds the number of pending transactions.
	submitQueueSize = 1024
)

// Ledger orders and commits anchor transactions over a world state.
type Ledger struct {
	store   *storage.Store
	sealKey *SealKey

	submitCh chan *storeTx
	stop     chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex // mu protects height
	height uint64
}

// Open creates a Ledger over the given store and starts the commit loop.
// The seal key signs every committed batch.
func Open(store *storage.Store, sealKey *SealKey) (*Ledger, error) {
	heightBytes, err := store.Get(keyHeight)
	if err != nil {
		return nil, fmt.Errorf("load height:\n%w", err)
	}

	l := &Ledger{
		store:    store,
		sealKey:  sealKey,
		submitCh: make(chan *storeTx, submitQueueSize),
		stop:     make(chan struct{}),
		height:   decodeHeight(heightBytes),
	}

	// Run the contract's setup hook. It is idempotent across restarts.
	if err := contract.New(readState{store}).Init(); err != nil {
		return nil, fmt.Errorf("contract init:\n%w", err)
	}

	l.wg.Add(1)
	go l.commitLoop()

	return l, nil
}

// Close stops the commit loop. Pending transactions are committed first.
// A transaction enqueued after the loop's final drain is failed with
// ErrClosed so its submitter never waits out its deadline.
func (l *Ledger) Close() {
	close(l.stop)
	l.wg.Wait()

	for {
		select {
		case tx := <-l.submitCh:
			tx.resp <- storeResult{err: ErrClosed}
		default:
			return
		}
	}
}

// Height returns the last committed batch height.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.height
}

// SealPublicKey returns the compressed public key seals are verified with.
func (l *Ledger) SealPublicKey() []byte {
	return l.sealKey.PublicKeyBytes()
}

// SubmitStore submits a store transaction and waits for it to commit.
// The receipt is returned only after the batch containing the transaction
// is durable. Two concurrent submissions for the same file ID race; the
// commit order decides the final value.
func (l *Ledger) SubmitStore(ctx context.Context, fileID, fileHash string) (*StoreReceipt, error) {
	// Fail fast before queueing; the contract re-checks at apply time.
	if fileID == "" {
		return nil, contract.ErrEmptyFileID
	}
	if fileHash == "" {
		return nil, contract.ErrEmptyFileHash
	}

	select {
	case <-l.stop:
		return nil, ErrClosed
	default:
	}

	tx := &storeTx{
		fileID:   fileID,
		fileHash: fileHash,
		resp:     make(chan storeResult, 1),
	}

	select {
	case l.submitCh <- tx:
	case <-l.stop:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-tx.resp:
		return res.receipt, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Query evaluates the stored hash for a file ID against local state.
// The result may not reflect transactions still awaiting commit.
func (l *Ledger) Query(fileID string) (string, error) {
	return contract.New(readState{l.store}).Query(fileID)
}

// Verify evaluates whether hashToCheck matches the stored hash for a
// file ID against local state.
func (l *Ledger) Verify(fileID, hashToCheck string) (bool, error) {
	return contract.New(readState{l.store}).Verify(fileID, hashToCheck)
}

// History returns the committed anchor history for a file ID in commit
// order. Returns ErrNoHistory if the file ID was never stored.
func (l *Ledger) History(fileID string) ([]HistoryEntry, error) {
	var entries []HistoryEntry

	err := l.store.IteratePrefix(historyPrefix(fileID), func(_, value []byte) error {
		entry, err := decodeHistoryEntry(value)
		if err != nil {
			return fmt.Errorf("decode history entry:\n%w", err)
		}

		entries = append(entries, entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, fileID)
	}

	return entries, nil
}

// SealAt returns the seal for the batch committed at the given height.
func (l *Ledger) SealAt(height uint64) (*Seal, error) {
	data, err := l.store.Get(sealKey(height))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: height %d", ErrSealNotFound, height)
	}

	seal, err := decodeSeal(data)
	if err != nil {
		return nil, fmt.Errorf("decode seal:\n%w", err)
	}

	return &seal, nil
}

// RecordCount counts the anchor records in the world state.
func (l *Ledger) RecordCount() (int, error) {
	count := 0

	err := l.store.IteratePrefix(prefixRecord, func(_, _ []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// commitLoop drains pending transactions and commits them in batches.
func (l *Ledger) commitLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			// Final drain so accepted transactions are not lost.
			l.commitPending()
			return
		case <-ticker.C:
			l.commitPending()
		}
	}
}

// commitPending applies all queued transactions as one atomic batch.
func (l *Ledger) commitPending() {
	txs := l.drainQueue()
	if len(txs) == 0 {
		return
	}

	height := l.Height() + 1

	batch := newBatchState(l.store)
	applier := contract.New(batch)

	results := make([]storeResult, len(txs))
	var txIDs []Hash

	now := time.Now().UTC()

	for i, tx := range txs {
		confirmation, err := applier.Store(tx.fileID, tx.fileHash)
		if err != nil {
			results[i] = storeResult{err: err}
			continue
		}

		index := uint32(len(txIDs))
		txID := computeTxID(tx.fileID, tx.fileHash, height, index)
		txIDs = append(txIDs, txID)

		entry := HistoryEntry{
			FileID:   tx.fileID,
			FileHash: tx.fileHash,
			TxID:     hex.EncodeToString(txID[:]),
			Height:   height,
			Time:     now,
		}

		encoded, err := encodeHistoryEntry(entry)
		if err != nil {
			results[i] = storeResult{err: fmt.Errorf("encode history entry:\n%w", err)}
			continue
		}

		batch.appendPair(historyKey(tx.fileID, height, index), encoded)

		results[i] = storeResult{receipt: &StoreReceipt{
			Confirmation: confirmation,
			TxID:         txID,
			Height:       height,
		}}
	}

	if len(txIDs) == 0 {
		// Nothing applied; respond without advancing height.
		l.respond(txs, results)
		return
	}

	if err := l.appendSeal(batch, height, txIDs); err != nil {
		l.failAll(txs, results, err)
		return
	}

	batch.appendPair(keyHeight, encodeHeight(height))

	if err := l.store.CommitBatch(batch.pairs); err != nil {
		l.failAll(txs, results, fmt.Errorf("commit batch:\n%w", err))
		return
	}

	l.mu.Lock()
	l.height = height
	l.mu.Unlock()

	logger.Debug("batch committed", "height", height, "txs", len(txIDs))

	l.respond(txs, results)
}

// appendSeal signs the batch root and stages the seal for commit.
func (l *Ledger) appendSeal(batch *batchState, height uint64, txIDs []Hash) error {
	root := batchRoot(txIDs)

	seal := Seal{
		Height:    height,
		Root:      root[:],
		Signature: l.sealKey.Sign(root[:]),
	}

	encoded, err := encodeSeal(seal)
	if err != nil {
		return fmt.Errorf("encode seal:\n%w", err)
	}

	batch.appendPair(sealKey(height), encoded)

	return nil
}

// drainQueue removes all currently queued transactions.
func (l *Ledger) drainQueue() []*storeTx {
	var txs []*storeTx

	for {
		select {
		case tx := <-l.submitCh:
			txs = append(txs, tx)
		default:
			return txs
		}
	}
}

// respond delivers per-transaction results to submitters.
func (l *Ledger) respond(txs []*storeTx, results []storeResult) {
	for i, tx := range txs {
		tx.resp <- results[i]
	}
}

// failAll replaces every pending success with the batch-level error.
func (l *Ledger) failAll(txs []*storeTx, results []storeResult, err error) {
	logger.Error("batch commit failed", "error", err)

	for i, tx := range txs {
		if results[i].err == nil {
			results[i] = storeResult{err: err}
		}
		tx.resp <- results[i]
	}
}
