// Package network carries submit and evaluate requests between the
// anchor gateway and the ledger node over QUIC. Messages are JSON with a
// 4-byte big-endian length prefix on bidirectional streams; outcomes are
// classified by a status code, never by message text.
package network

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "anchorledger/1"

	// maxMessageSize is the maximum allowed message size (1 MB).
	maxMessageSize = 1 << 20

	// lengthPrefixSize is the size of the length prefix in bytes.
	lengthPrefixSize = 4
)

// Operations the ledger node accepts.
const (
	OpStore   = "store"   // OpStore anchors a file hash (submit path, ordered)
	OpQuery   = "query"   // OpQuery reads the anchored hash (evaluate path)
	OpVerify  = "verify"  // OpVerify compares a candidate hash (evaluate path)
	OpHistory = "history" // OpHistory reads the anchor history (evaluate path)
)

// Status classifies a ledger response.
type Status string

const (
	StatusOK       Status = "ok"
	StatusNotFound Status = "not_found"
	StatusInvalid  Status = "invalid"
	StatusInternal Status = "internal"
)

// Request is one submit or evaluate request.
type Request struct {
	Op          string `json:"op"`
	FileID      string `json:"fileId"`
	FileHash    string `json:"fileHash,omitempty"`
	HashToCheck string `json:"hashToCheck,omitempty"`
}

// Response is the ledger's answer to a Request.
// Payload holds the operation result on StatusOK: the confirmation text
// for store, the stored hash for query, "true"/"false" for verify.
type Response struct {
	Status  Status `json:"status"`
	Payload string `json:"payload,omitempty"`
	TxID    string `json:"txId,omitempty"`
	Height  uint64 `json:"height,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeMessage writes a length-prefixed JSON message to the writer.
func writeMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message:\n%w", err)
	}

	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d > %d", len(data), maxMessageSize)
	}

	var lengthBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// readMessage reads a length-prefixed JSON message from the reader.
func readMessage(r io.Reader, v any) error {
	var lengthBuf [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return fmt.Errorf("read length: %w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])

	if length > maxMessageSize {
		return fmt.Errorf("message too large: %d > %d", length, maxMessageSize)
	}

	data := make([]byte, length)

	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message:\n%w", err)
	}

	return nil
}
