package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"AnchorLedger/internal/ledger"
	"AnchorLedger/internal/logger"
)

// AdminServer is the node's operator-facing HTTP API.
type AdminServer struct {
	addr   string         // addr is the HTTP listen address
	ledger *ledger.Ledger // ledger provides height, records, and snapshots
	server *http.Server   // server is the underlying HTTP server
}

// NewAdminServer creates the admin HTTP server.
func NewAdminServer(addr string, l *ledger.Ledger) *AdminServer {
	return &AdminServer{
		addr:   addr,
		ledger: l,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *AdminServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("admin api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("admin server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *AdminServer) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.RecordCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count records: "+err.Error())
		return
	}

	status := map[string]any{
		"height":  s.ledger.Height(),
		"records": records,
		"sealKey": hex.EncodeToString(s.ledger.SealPublicKey()),
	}

	if height := s.ledger.Height(); height > 0 {
		seal, err := s.ledger.SealAt(height)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load seal: "+err.Error())
			return
		}
		status["lastSealRoot"] = hex.EncodeToString(seal.Root)
	}

	writeJSON(w, http.StatusOK, status)
}

// handleSnapshot handles GET /snapshot requests: a zstd-compressed
// export of the anchor keyspace.
func (s *AdminServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.CreateSnapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create snapshot: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.WriteHeader(http.StatusOK)
	w.Write(snapshot)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
