package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"AnchorLedger/internal/storage"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1
)

// snapshotPrefixes lists the keyspaces included in a snapshot: anchor
// records, their history, and ledger metadata (height, seals).
var snapshotPrefixes = [][]byte{prefixRecord, prefixHistory, prefixMeta}

// CreateSnapshot exports the anchor keyspace as a zstd-compressed blob.
// Entry format inside the compressed stream:
// [1 byte version] then per entry [4 bytes key len][key][4 bytes value len][value].
func (l *Ledger) CreateSnapshot() ([]byte, error) {
	var raw bytes.Buffer
	raw.WriteByte(snapshotVersion)

	for _, prefix := range snapshotPrefixes {
		err := l.store.IteratePrefix(prefix, func(key, value []byte) error {
			writeEntry(&raw, key, value)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect %q keys:\n%w", prefix, err)
		}
	}

	var compressed bytes.Buffer

	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer:\n%w", err)
	}

	if _, err := enc.Write(raw.Bytes()); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress snapshot:\n%w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish compression:\n%w", err)
	}

	return compressed.Bytes(), nil
}

// RestoreSnapshot loads a snapshot into a fresh store. A store that has
// already committed a batch is refused: restore seeds a new node, it
// does not merge ledgers.
func RestoreSnapshot(store *storage.Store, snapshot []byte) error {
	committed, err := store.Has(keyHeight)
	if err != nil {
		return fmt.Errorf("check ledger height:\n%w", err)
	}
	if committed {
		return fmt.Errorf("store already holds a committed ledger, refusing to restore")
	}

	dec, err := zstd.NewReader(bytes.NewReader(snapshot))
	if err != nil {
		return fmt.Errorf("create zstd reader:\n%w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decompress snapshot:\n%w", err)
	}

	if len(raw) < 1 {
		return fmt.Errorf("snapshot too short")
	}

	if raw[0] != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", raw[0])
	}

	pairs, err := readEntries(raw[1:])
	if err != nil {
		return err
	}

	return store.CommitBatch(pairs)
}

// writeEntry appends one length-prefixed key-value entry.
func writeEntry(buf *bytes.Buffer, key, value []byte) {
	var lengthBuf [4]byte

	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(key)))
	buf.Write(lengthBuf[:])
	buf.Write(key)

	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(value)))
	buf.Write(lengthBuf[:])
	buf.Write(value)
}

// readEntries parses the length-prefixed entries of a snapshot body.
func readEntries(data []byte) ([]storage.KeyValue, error) {
	var pairs []storage.KeyValue

	for len(data) > 0 {
		key, rest, err := readChunk(data)
		if err != nil {
			return nil, fmt.Errorf("read key:\n%w", err)
		}

		value, rest, err := readChunk(rest)
		if err != nil {
			return nil, fmt.Errorf("read value:\n%w", err)
		}

		pairs = append(pairs, storage.KeyValue{Key: key, Value: value})
		data = rest
	}

	return pairs, nil
}

// readChunk reads one 4-byte length-prefixed chunk.
func readChunk(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}

	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]

	if uint32(len(data)) < length {
		return nil, nil, fmt.Errorf("truncated chunk: want %d bytes, have %d", length, len(data))
	}

	chunk := make([]byte, length)
	copy(chunk, data[:length])

	return chunk, data[length:], nil
}
