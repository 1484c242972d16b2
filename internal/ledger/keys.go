package ledger

import "encoding/binary"

// World-state keyspace layout. Anchor records live under r:, their
// append-only history under h:, ledger metadata under m:.
var (
	prefixRecord  = []byte("r:")
	prefixHistory = []byte("h:")
	prefixMeta    = []byte("m:")

	keyHeight = []byte("m:height")
)

// recordKey returns the current-record key for a file ID.
func recordKey(fileID string) []byte {
	return append(append([]byte{}, prefixRecord...), fileID...)
}

// historyPrefix returns the key prefix covering all history entries
// for a file ID. The file ID is length-prefixed: IDs are opaque and may
// contain any byte, so a delimiter could let one ID alias another's
// keyspace ("doc" scanning into "doc:v2").
func historyPrefix(fileID string) []byte {
	key := append([]byte{}, prefixHistory...)
	key = binary.BigEndian.AppendUint32(key, uint32(len(fileID)))
	return append(key, fileID...)
}

// historyKey returns the history entry key for a commit at the given
// height and in-batch index. Big-endian encoding keeps entries in commit
// order under a prefix scan.
func historyKey(fileID string, height uint64, index uint32) []byte {
	key := historyPrefix(fileID)
	key = binary.BigEndian.AppendUint64(key, height)
	return binary.BigEndian.AppendUint32(key, index)
}

// sealKey returns the metadata key for the seal at the given height.
func sealKey(height uint64) []byte {
	key := append(append([]byte{}, prefixMeta...), "seal:"...)
	return binary.BigEndian.AppendUint64(key, height)
}

// encodeHeight encodes a height for the m:height key.
func encodeHeight(height uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, height)
}

// decodeHeight decodes a height value. Returns 0 for nil or short input.
func decodeHeight(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
