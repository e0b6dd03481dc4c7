// Package coordclient is the caller-facing facade over the lease coordinator.
//
// When the coordinator is reachable, every operation goes over the wire and
// exclusivity is strong. When it is not, the client switches to a degraded
// mode: claims and releases are applied directly to the task store's owner
// field and the result is tagged Degraded so callers can log the weakened
// guarantee. Two agents racing in degraded mode may both believe they hold a
// task; the race is detected only when one later reads back the owner field
// and finds a different value. That tradeoff is deliberate - liveness is
// preserved at the cost of best-effort exclusivity - and callers must treat
// Degraded results accordingly.
package coordclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dyluth/warren/internal/coordinator"
	"github.com/dyluth/warren/pkg/taskboard"
)

// ErrUnavailable marks operations that have no degraded fallback when the
// coordinator cannot be reached.
var ErrUnavailable = errors.New("coordinator unavailable")

// defaultTimeout bounds every individual HTTP request to the coordinator.
const defaultTimeout = 3 * time.Second

// maxRetries is the number of transport-level retries before the client
// declares the coordinator unreachable and falls back.
const maxRetries = 2

// Client talks to the lease coordinator over HTTP and falls back to direct
// task store mutation when the service cannot be reached. Presence or absence
// of the coordination tier is an explicit client state, observable via
// IsAvailable, rather than a scatter of nil-checks at call sites.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      taskboard.Store

	// newBackOff builds the retry policy for one request. Swapped out in
	// tests to avoid real backoff delays.
	newBackOff func() backoff.BackOff

	// available records the result of the most recent wire interaction.
	// It starts true: the first call discovers the truth.
	available atomic.Bool
}

// New creates a client for the coordinator at baseURL, with store as the
// degraded-mode fallback.
func New(baseURL string, store taskboard.Store) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
		},
	}
	c.available.Store(true)
	return c
}

// ClaimResult is the uniform result shape for claim calls.
// Exactly one of Granted or Conflict describes the outcome; Degraded marks
// results produced by the fallback path.
type ClaimResult struct {
	Granted   bool
	LeaseID   string
	ExpiresAt time.Time
	Conflict  *coordinator.Conflict
	Degraded  bool
}

// ReleaseResult reports a release, with the degraded marker.
type ReleaseResult struct {
	Degraded bool
}

// ExtendResult reports an extension, with the degraded marker.
type ExtendResult struct {
	ExpiresAt time.Time
	Degraded  bool
}

// StatusResult reports lease status. In degraded mode Lease is always nil
// and Owner carries the task store's owner field instead.
type StatusResult struct {
	Lease    *taskboard.Lease
	Owner    string
	Degraded bool
}

// IsAvailable reports whether the most recent coordinator interaction
// succeeded. Callers can branch on this to log reduced-guarantee operation
// rather than discovering it implicitly.
func (c *Client) IsAvailable() bool {
	return c.available.Load()
}

// Claim attempts to acquire an exclusive lease on a task.
//
// Against a reachable coordinator this is strongly exclusive: either the
// lease is granted or a Conflict describes the current holder. When the
// coordinator is unreachable the claim degrades to a direct owner write on
// the task store.
func (c *Client) Claim(ctx context.Context, taskID, agent string, ttl time.Duration) (*ClaimResult, error) {
	return c.claim(ctx, taskID, agent, ttl, false)
}

// ForceClaim is the administrative override: any live lease on the task is
// revoked and a fresh one installed for agent. In degraded mode the owner
// field is overwritten unconditionally.
func (c *Client) ForceClaim(ctx context.Context, taskID, agent string, ttl time.Duration) (*ClaimResult, error) {
	return c.claim(ctx, taskID, agent, ttl, true)
}

func (c *Client) claim(ctx context.Context, taskID, agent string, ttl time.Duration, force bool) (*ClaimResult, error) {
	body, err := json.Marshal(coordinator.ClaimRequest{
		TaskID:     taskID,
		Agent:      agent,
		TTLSeconds: int(ttl.Seconds()),
		Force:      force,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claim request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/claim", bytes.NewReader(body))
	if err != nil {
		return c.degradedClaim(ctx, taskID, agent, ttl, force)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var claim coordinator.ClaimResponse
		if err := json.NewDecoder(resp.Body).Decode(&claim); err != nil {
			return nil, fmt.Errorf("failed to decode claim response: %w", err)
		}
		return &ClaimResult{
			Granted:   true,
			LeaseID:   claim.LeaseID,
			ExpiresAt: claim.ExpiresAt,
		}, nil

	case http.StatusConflict:
		var conflict coordinator.ConflictResponse
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return nil, fmt.Errorf("failed to decode conflict response: %w", err)
		}
		return &ClaimResult{
			Conflict: &coordinator.Conflict{
				CurrentHolder: conflict.CurrentHolder,
				ClaimedAt:     conflict.ClaimedAt,
				ExpiresAt:     conflict.ExpiresAt,
			},
		}, nil

	default:
		return nil, c.statusError(resp)
	}
}

// degradedClaim applies the claim directly to the task store.
func (c *Client) degradedClaim(ctx context.Context, taskID, agent string, ttl time.Duration, force bool) (*ClaimResult, error) {
	log.Printf("[WARN] Coordinator unreachable, claiming task %s for %s directly against the task store (exclusivity is best-effort)", taskID, agent)

	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		if taskboard.IsNotFound(err) {
			return nil, fmt.Errorf("task %s: %w", taskID, coordinator.ErrNotFound)
		}
		return nil, fmt.Errorf("degraded claim failed to read task: %w", err)
	}

	if !force && task.Owner != "" && task.Owner != agent {
		return &ClaimResult{
			Conflict: &coordinator.Conflict{CurrentHolder: task.Owner},
			Degraded: true,
		}, nil
	}

	if err := c.store.UpdateTask(ctx, taskID, taskboard.TaskUpdate{Owner: &agent}); err != nil {
		return nil, fmt.Errorf("degraded claim failed to write owner: %w", err)
	}

	// The synthetic token lets callers keep a uniform shape; nothing
	// enforces the nominal expiry in degraded mode.
	return &ClaimResult{
		Granted:   true,
		LeaseID:   uuid.New().String(),
		ExpiresAt: time.Now().Add(ttl),
		Degraded:  true,
	}, nil
}

// Release clears a lease. In degraded mode the task store's owner field is
// cleared directly, best-effort.
func (c *Client) Release(ctx context.Context, taskID, leaseID string) (*ReleaseResult, error) {
	path := fmt.Sprintf("/release/%s?lease_id=%s", url.PathEscape(taskID), url.QueryEscape(leaseID))

	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		log.Printf("[WARN] Coordinator unreachable, releasing task %s directly against the task store", taskID)

		unclaimed := ""
		if err := c.store.UpdateTask(ctx, taskID, taskboard.TaskUpdate{Owner: &unclaimed}); err != nil {
			return nil, fmt.Errorf("degraded release failed to clear owner: %w", err)
		}
		return &ReleaseResult{Degraded: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	return &ReleaseResult{}, nil
}

// Extend pushes a held lease's expiry forward. There is nothing to extend in
// degraded mode - no expiry exists - so the fallback is a logged no-op.
func (c *Client) Extend(ctx context.Context, taskID, leaseID string, additionalTTL time.Duration) (*ExtendResult, error) {
	body, err := json.Marshal(coordinator.ExtendRequest{
		TaskID:               taskID,
		LeaseID:              leaseID,
		AdditionalTTLSeconds: int(additionalTTL.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extend request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/extend", bytes.NewReader(body))
	if err != nil {
		log.Printf("[WARN] Coordinator unreachable, extend of task %s is a no-op in degraded mode", taskID)
		return &ExtendResult{ExpiresAt: time.Now().Add(additionalTTL), Degraded: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var extended coordinator.ExtendResponse
	if err := json.NewDecoder(resp.Body).Decode(&extended); err != nil {
		return nil, fmt.Errorf("failed to decode extend response: %w", err)
	}

	return &ExtendResult{ExpiresAt: extended.ExpiresAt}, nil
}

// Status reports the lease on a task. In degraded mode it falls back to the
// task store's owner field.
func (c *Client) Status(ctx context.Context, taskID string) (*StatusResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/status/"+url.PathEscape(taskID), nil)
	if err != nil {
		task, storeErr := c.store.GetTask(ctx, taskID)
		if storeErr != nil {
			if taskboard.IsNotFound(storeErr) {
				return nil, fmt.Errorf("task %s: %w", taskID, coordinator.ErrNotFound)
			}
			return nil, fmt.Errorf("degraded status failed to read task: %w", storeErr)
		}
		return &StatusResult{Owner: task.Owner, Degraded: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var status coordinator.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	result := &StatusResult{Lease: status.Lease}
	if status.Lease != nil {
		result.Owner = status.Lease.Holder
	}
	return result, nil
}

// Reservations lists all active leases. Unavailable in degraded mode: the
// task store has no lease table to consult.
func (c *Client) Reservations(ctx context.Context) ([]*taskboard.Lease, error) {
	resp, err := c.do(ctx, http.MethodGet, "/reservations", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var leases []*taskboard.Lease
	if err := json.NewDecoder(resp.Body).Decode(&leases); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return leases, nil
}

// Health probes the coordinator's liveness endpoint and updates the
// availability state.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator health check returned %d", resp.StatusCode)
	}
	return nil
}

// do performs one HTTP request with bounded transport retries. Transport
// failures (not HTTP error statuses) are retried with exponential backoff
// before the coordinator is declared unreachable.
func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		var reqBody *bytes.Reader
		if body != nil {
			reqBody = body
			if _, err := reqBody.Seek(0, 0); err != nil {
				return backoff.Permanent(err)
			}
		}

		var r *http.Request
		var err error
		if reqBody != nil {
			r, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		} else {
			r, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(r)
		return err
	}

	policy := backoff.WithContext(c.newBackOff(), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		c.available.Store(false)
		return nil, err
	}

	c.available.Store(true)
	return resp, nil
}

// statusError maps non-200 HTTP statuses back to the coordinator's error
// taxonomy so callers can use errors.Is across both transports.
func (c *Client) statusError(resp *http.Response) error {
	var wireErr coordinator.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&wireErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", wireErr.Error, coordinator.ErrNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", wireErr.Error, coordinator.ErrOwnershipMismatch)
	case http.StatusBadRequest:
		return &coordinator.ValidationError{Reason: wireErr.Error}
	default:
		return fmt.Errorf("coordinator returned unexpected status %d: %s", resp.StatusCode, wireErr.Error)
	}
}
