package coordinator

import (
	"time"

	"github.com/dyluth/warren/pkg/taskboard"
)

// Wire protocol types shared by the coordinator server and its client.
//
// The protocol is JSON over HTTP:
//
//	POST   /claim                    -> 200 ClaimResponse | 409 ConflictResponse
//	DELETE /release/{task_id}?lease_id=... -> 200 | 404 | 403
//	POST   /extend                   -> 200 ExtendResponse | 403 | 404
//	GET    /status/{task_id}         -> 200 StatusResponse
//	GET    /reservations             -> 200 [taskboard.Lease, ...]
//	GET    /health                   -> 200 HealthResponse

// ClaimRequest asks for an exclusive lease on a task.
type ClaimRequest struct {
	TaskID     string `json:"task_id"`
	Agent      string `json:"agent"`
	TTLSeconds int    `json:"ttl_seconds"`
	Force      bool   `json:"force,omitempty"` // administrative override
}

// ClaimResponse carries a granted lease.
type ClaimResponse struct {
	LeaseID   string    `json:"lease_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConflictResponse describes the live lease that denied a claim (HTTP 409).
type ConflictResponse struct {
	CurrentHolder string    `json:"current_holder"`
	ClaimedAt     time.Time `json:"claimed_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ExtendRequest pushes a held lease's expiry forward from now.
type ExtendRequest struct {
	TaskID               string `json:"task_id"`
	LeaseID              string `json:"lease_id"`
	AdditionalTTLSeconds int    `json:"additional_ttl_seconds"`
}

// ExtendResponse carries the new expiry.
type ExtendResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// StatusResponse carries the live lease for a task, or null if unclaimed.
type StatusResponse struct {
	Lease *taskboard.Lease `json:"lease"`
}

// ErrorResponse carries a human-readable error for non-200 statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON response structure for the liveness probe.
type HealthResponse struct {
	Status string `json:"status"`
	Leases int    `json:"leases"`
}
