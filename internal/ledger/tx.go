package ledger

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte blake3 digest.
type Hash = [32]byte

// StoreReceipt acknowledges a committed store transaction.
type StoreReceipt struct {
	Confirmation string // Confirmation is the contract's acknowledgement text
	TxID         Hash   // TxID identifies the transaction
	Height       uint64 // Height is the batch the transaction committed in
}

// HistoryEntry is one immutable anchor in a file's history.
// The current record is always the latest entry.
type HistoryEntry struct {
	FileID   string    `json:"fileId"`
	FileHash string    `json:"fileHash"`
	TxID     string    `json:"txId"`
	Height   uint64    `json:"height"`
	Time     time.Time `json:"time"`
}

// storeTx is a pending store transaction awaiting commit.
type storeTx struct {
	fileID   string
	fileHash string
	resp     chan storeResult
}

// storeResult carries the commit outcome back to the submitter.
type storeResult struct {
	receipt *StoreReceipt
	err     error
}

// computeTxID derives the transaction ID from the anchor contents and
// its position in the commit order.
func computeTxID(fileID, fileHash string, height uint64, index uint32) Hash {
	h := blake3.New()
	h.Write([]byte(fileID))
	h.Write([]byte{0})
	h.Write([]byte(fileHash))

	var pos [12]byte
	binary.BigEndian.PutUint64(pos[:8], height)
	binary.BigEndian.PutUint32(pos[8:], index)
	h.Write(pos[:])

	var id Hash
	h.Sum(id[:0])

	return id
}

// batchRoot computes the blake3 root over the transaction IDs of a batch,
// in commit order.
func batchRoot(txIDs []Hash) Hash {
	h := blake3.New()
	for _, id := range txIDs {
		h.Write(id[:])
	}

	var root Hash
	h.Sum(root[:0])

	return root
}

// encodeHistoryEntry serializes a history entry for storage.
func encodeHistoryEntry(e HistoryEntry) ([]byte, error) {
	return json.Marshal(e)
}

// decodeHistoryEntry deserializes a stored history entry.
func decodeHistoryEntry(data []byte) (HistoryEntry, error) {
	var e HistoryEntry
	err := json.Unmarshal(data, &e)
	return e, err
}
