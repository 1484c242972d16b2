// Package node wires the ledger into its serving surfaces: the QUIC
// handler answering gateway requests and the admin HTTP API.
package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"AnchorLedger/internal/contract"
	"AnchorLedger/internal/ledger"
	"AnchorLedger/internal/logger"
	"AnchorLedger/internal/network"
)

const (
	// submitTimeout bounds how long a store waits for its commit.
	submitTimeout = 10 * time.Second
)

// Handler returns the network handler serving submit and evaluate
// requests against the ledger.
func Handler(l *ledger.Ledger) network.Handler {
	return func(req network.Request) network.Response {
		switch req.Op {
		case network.OpStore:
			return handleStore(l, req)
		case network.OpQuery:
			return handleQuery(l, req)
		case network.OpVerify:
			return handleVerify(l, req)
		case network.OpHistory:
			return handleHistory(l, req)
		default:
			return network.Response{
				Status:  network.StatusInvalid,
				Message: "unknown operation: " + req.Op,
			}
		}
	}
}

// handleStore submits a store transaction and waits for its commit.
func handleStore(l *ledger.Ledger, req network.Request) network.Response {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	receipt, err := l.SubmitStore(ctx, req.FileID, req.FileHash)
	if err != nil {
		return failure(err)
	}

	logger.Debug("store committed", "fileId", req.FileID, "height", receipt.Height)

	return network.Response{
		Status:  network.StatusOK,
		Payload: receipt.Confirmation,
		TxID:    hex.EncodeToString(receipt.TxID[:]),
		Height:  receipt.Height,
	}
}

// handleQuery evaluates the stored hash for a file ID.
func handleQuery(l *ledger.Ledger, req network.Request) network.Response {
	hash, err := l.Query(req.FileID)
	if err != nil {
		return failure(err)
	}

	return network.Response{Status: network.StatusOK, Payload: hash}
}

// handleVerify evaluates a candidate hash against the anchored value.
// The boolean result travels as the literal string "true" or "false".
func handleVerify(l *ledger.Ledger, req network.Request) network.Response {
	ok, err := l.Verify(req.FileID, req.HashToCheck)
	if err != nil {
		return failure(err)
	}

	return network.Response{Status: network.StatusOK, Payload: strconv.FormatBool(ok)}
}

// handleHistory evaluates the anchor history for a file ID.
func handleHistory(l *ledger.Ledger, req network.Request) network.Response {
	entries, err := l.History(req.FileID)
	if err != nil {
		return failure(err)
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return failure(err)
	}

	return network.Response{Status: network.StatusOK, Payload: string(payload)}
}

// failure classifies a ledger error into a wire status. Callers switch
// on the status code, never on the message text.
func failure(err error) network.Response {
	status := network.StatusInternal

	switch {
	case errors.Is(err, contract.ErrNotFound), errors.Is(err, ledger.ErrNoHistory):
		status = network.StatusNotFound
	case errors.Is(err, contract.ErrEmptyFileID), errors.Is(err, contract.ErrEmptyFileHash):
		status = network.StatusInvalid
	}

	return network.Response{Status: status, Message: err.Error()}
}
