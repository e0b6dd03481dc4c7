package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Server exposes a Coordinator over the JSON/HTTP wire protocol.
// The coordinator instance is injected at construction; handlers hold no
// state of their own.
type Server struct {
	coord  *Coordinator
	server *http.Server

	// SweepInterval controls the optional periodic sweep of abandoned
	// entries. Zero disables sweeping; lazy expiry keeps the coordinator
	// correct either way.
	SweepInterval time.Duration
}

// NewServer creates a server for the given coordinator listening on addr.
func NewServer(coord *Coordinator, addr string) *Server {
	s := &Server{
		coord:         coord,
		SweepInterval: time.Minute,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for the wire protocol.
// Exposed separately so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/claim", s.handleClaim)
	mux.HandleFunc("/release/", s.handleRelease)
	mux.HandleFunc("/extend", s.handleExtend)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/reservations", s.handleReservations)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully. A periodic sweep runs alongside when enabled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.Printf("[Coordinator] Listening on %s", s.server.Addr)

	var sweepC <-chan time.Time
	if s.SweepInterval > 0 {
		ticker := time.NewTicker(s.SweepInterval)
		defer ticker.Stop()
		sweepC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Coordinator] Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.server.Shutdown(shutdownCtx)

		case err := <-errCh:
			return fmt.Errorf("coordinator server failed: %w", err)

		case <-sweepC:
			if removed := s.coord.Sweep(); removed > 0 {
				s.logEvent("sweep", map[string]interface{}{"removed": removed})
			}
		}
	}
}

// handleClaim handles POST /claim.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	lease, conflict, err := s.coord.Claim(req.TaskID, req.Agent, time.Duration(req.TTLSeconds)*time.Second, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if conflict != nil {
		s.logEvent("claim_conflict", map[string]interface{}{
			"task_id":        req.TaskID,
			"agent":          req.Agent,
			"current_holder": conflict.CurrentHolder,
		})
		writeJSON(w, http.StatusConflict, ConflictResponse{
			CurrentHolder: conflict.CurrentHolder,
			ClaimedAt:     conflict.ClaimedAt,
			ExpiresAt:     conflict.ExpiresAt,
		})
		return
	}

	s.logEvent("claim_granted", map[string]interface{}{
		"task_id":    req.TaskID,
		"agent":      req.Agent,
		"lease_id":   lease.LeaseID,
		"expires_at": lease.ExpiresAt.UTC().Format(time.RFC3339),
		"force":      req.Force,
	})

	writeJSON(w, http.StatusOK, ClaimResponse{
		LeaseID:   lease.LeaseID,
		ExpiresAt: lease.ExpiresAt,
	})
}

// handleRelease handles DELETE /release/{task_id}?lease_id=...
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/release/")
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "task_id missing from path"})
		return
	}

	leaseID := r.URL.Query().Get("lease_id")

	if err := s.coord.Release(taskID, leaseID); err != nil {
		s.writeError(w, err)
		return
	}

	s.logEvent("lease_released", map[string]interface{}{"task_id": taskID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// handleExtend handles POST /extend.
func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	lease, err := s.coord.Extend(req.TaskID, req.LeaseID, time.Duration(req.AdditionalTTLSeconds)*time.Second)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logEvent("lease_extended", map[string]interface{}{
		"task_id":    req.TaskID,
		"expires_at": lease.ExpiresAt.UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, ExtendResponse{ExpiresAt: lease.ExpiresAt})
}

// handleStatus handles GET /status/{task_id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/status/")
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "task_id missing from path"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Lease: s.coord.Status(taskID)})
}

// handleReservations handles GET /reservations.
func (s *Server) handleReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.coord.Reservations())
}

// handleHealth handles GET /health - the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Leases: len(s.coord.Reservations()),
	})
}

// writeError maps coordinator errors to wire statuses:
// validation 400, not found 404, ownership mismatch 403.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrOwnershipMismatch):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// logEvent logs a structured event in JSON format.
func (s *Server) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "coordinator"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Coordinator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
