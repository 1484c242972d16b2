// Package gateway is the network-facing anchor gateway: it accepts
// store, query, and verify requests over HTTP and bridges each one to
// exactly one ledger interaction over a connection it owns for the
// duration of that request.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"AnchorLedger/internal/logger"
	"AnchorLedger/internal/network"
	"AnchorLedger/internal/wallet"
)

const (
	// defaultRequestTimeout bounds one inbound request end to end,
	// including the ledger interaction.
	defaultRequestTimeout = 15 * time.Second

	// maxBodySize is the maximum accepted request body.
	maxBodySize = 64 << 10 // 64 KB
)

// Server is the anchor gateway HTTP server.
type Server struct {
	addr      string        // addr is the HTTP listen address
	connector Connector     // connector opens one ledger connection per request
	timeout   time.Duration // timeout bounds each request's ledger interaction
	listener  net.Listener  // listener is the bound TCP listener
	server    *http.Server  // server is the underlying HTTP server
}

// New creates a gateway server. A zero timeout selects the default.
func New(addr string, connector Connector, timeout time.Duration) *Server {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	return &Server{
		addr:      addr,
		connector: connector,
		timeout:   timeout,
	}
}

// routes builds the HTTP mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /store", s.handleStore)
	mux.HandleFunc("GET /query/{fileId}", s.handleQuery)
	mux.HandleFunc("POST /verify", s.handleVerify)
	mux.HandleFunc("GET /history/{fileId}", s.handleHistory)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start binds the listen address and serves HTTP in a goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s:\n%w", s.addr, err)
	}

	s.listener = listener

	s.server = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
	}

	go func() {
		logger.Info("anchor gateway started", "addr", listener.Addr().String())

		if err := s.server.Serve(listener); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// storeRequest is the POST /store body.
type storeRequest struct {
	FileID   string `json:"fileId"`
	FileHash string `json:"fileHash"`
}

// verifyRequest is the POST /verify body.
type verifyRequest struct {
	FileID      string `json:"fileId"`
	HashToCheck string `json:"hashToCheck"`
}

// handleStore handles POST /store requests: anchor a file hash.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeBody(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// Fail fast on missing fields, before any ledger interaction.
	if req.FileID == "" || req.FileHash == "" {
		writeText(w, http.StatusBadRequest, "fileId and fileHash are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp, err := s.ledgerRequest(ctx, network.Request{
		Op:       network.OpStore,
		FileID:   req.FileID,
		FileHash: req.FileHash,
	})
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	if resp.Status != network.StatusOK {
		s.writeLedgerFailure(w, req.FileID, resp)
		return
	}

	logger.Info("anchor stored", "fileId", req.FileID, "txId", resp.TxID, "height", resp.Height)

	writeText(w, http.StatusOK,
		fmt.Sprintf("%s (tx %s, height %d)", resp.Payload, resp.TxID, resp.Height))
}

// handleQuery handles GET /query/{fileId} requests: read the anchored hash.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		writeText(w, http.StatusBadRequest, "fileId path parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp, err := s.ledgerRequest(ctx, network.Request{
		Op:     network.OpQuery,
		FileID: fileID,
	})
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	if resp.Status != network.StatusOK {
		s.writeLedgerFailure(w, fileID, resp)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"fileId":     fileID,
		"storedHash": resp.Payload,
	})
}

// handleVerify handles POST /verify requests: compare a candidate hash
// against the anchored value.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.FileID == "" || req.HashToCheck == "" {
		writeText(w, http.StatusBadRequest, "fileId and hashToCheck are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp, err := s.ledgerRequest(ctx, network.Request{
		Op:          network.OpVerify,
		FileID:      req.FileID,
		HashToCheck: req.HashToCheck,
	})
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	if resp.Status == network.StatusNotFound {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"fileId":   req.FileID,
			"verified": false,
			"message":  fmt.Sprintf("no anchor exists for %q, nothing to verify against", req.FileID),
		})
		return
	}

	if resp.Status != network.StatusOK {
		s.writeLedgerFailure(w, req.FileID, resp)
		return
	}

	verified := resp.Payload == "true"

	message := "file integrity confirmed"
	if !verified {
		message = "file hash does not match the anchored value"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fileId":   req.FileID,
		"verified": verified,
		"message":  message,
	})
}

// handleHistory handles GET /history/{fileId} requests: the committed
// anchor history, oldest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		writeText(w, http.StatusBadRequest, "fileId path parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	resp, err := s.ledgerRequest(ctx, network.Request{
		Op:     network.OpHistory,
		FileID: fileID,
	})
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	if resp.Status != network.StatusOK {
		s.writeLedgerFailure(w, fileID, resp)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fileId":  fileID,
		"history": json.RawMessage(resp.Payload),
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ledgerRequest performs one ledger interaction on a freshly acquired
// connection. The connection is released exactly once on every exit
// path; a failed release is logged, never surfaced.
func (s *Server) ledgerRequest(ctx context.Context, req network.Request) (network.Response, error) {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return network.Response{}, err
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logger.Warn("release ledger connection failed", "error", cerr)
		}
	}()

	return conn.Request(ctx, req)
}

// writeConnectError maps a connection-phase failure to an HTTP response.
// Missing identity is the caller's credential problem (401); a missing
// or invalid profile is a server configuration error (500); anything
// else is a ledger failure with detail appended for diagnosis.
func (s *Server) writeConnectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrIdentityNotFound):
		writeText(w, http.StatusUnauthorized,
			"no enrolled identity available: enroll one before using the gateway")
	case errors.Is(err, ErrProfile):
		logger.Error("connection profile unavailable", "error", err)
		writeText(w, http.StatusInternalServerError,
			"server configuration error: connection profile unavailable")
	default:
		logger.Error("ledger connection failed", "error", err)
		writeText(w, http.StatusInternalServerError,
			"ledger interaction failed, detail: "+err.Error())
	}
}

// writeLedgerFailure maps a non-OK ledger response to an HTTP response,
// classifying by the wire status code.
func (s *Server) writeLedgerFailure(w http.ResponseWriter, fileID string, resp network.Response) {
	switch resp.Status {
	case network.StatusNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{
			"fileId":  fileID,
			"message": fmt.Sprintf("no information found for %q", fileID),
		})
	case network.StatusInvalid:
		writeText(w, http.StatusBadRequest, resp.Message)
	default:
		logger.Error("ledger reported failure", "fileId", fileID, "message", resp.Message)
		writeText(w, http.StatusInternalServerError,
			"ledger interaction failed, detail: "+resp.Message)
	}
}

// decodeBody parses a JSON request body with a size cap.
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(v)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeText writes a plain text response.
func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, message)
}
