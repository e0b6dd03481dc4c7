package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/taskboard"
)

func setupTestServer(t *testing.T) (*httptest.Server, *Coordinator, *fakeClock) {
	coord, clock := newTestCoordinator()
	srv := NewServer(coord, "127.0.0.1:0")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, coord, clock
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func doDelete(t *testing.T, url string) *http.Response {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestClaimEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	t.Run("grants a lease", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/claim", ClaimRequest{
			TaskID: "t1", Agent: "agent-x", TTLSeconds: 60,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var claim ClaimResponse
		decodeBody(t, resp, &claim)
		assert.NotEmpty(t, claim.LeaseID)
		assert.False(t, claim.ExpiresAt.IsZero())
	})

	t.Run("conflicting claim returns 409 with holder details", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/claim", ClaimRequest{
			TaskID: "t1", Agent: "agent-y", TTLSeconds: 60,
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		var conflict ConflictResponse
		decodeBody(t, resp, &conflict)
		assert.Equal(t, "agent-x", conflict.CurrentHolder)
		assert.False(t, conflict.ExpiresAt.IsZero())
	})

	t.Run("force claim overrides", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/claim", ClaimRequest{
			TaskID: "t1", Agent: "admin", TTLSeconds: 60, Force: true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("non-positive ttl rejected with 400", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/claim", ClaimRequest{
			TaskID: "t2", Agent: "agent-x", TTLSeconds: 0,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body rejected with 400", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/claim", "application/json", bytes.NewReader([]byte("{nope")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("GET not allowed", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/claim")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestReleaseEndpoint(t *testing.T) {
	ts, coord, _ := setupTestServer(t)

	lease, _, err := coord.Claim("t1", "agent-x", 60*time.Second, false)
	require.NoError(t, err)

	t.Run("mismatched token returns 403", func(t *testing.T) {
		resp := doDelete(t, ts.URL+"/release/t1?lease_id=bogus")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("matching token returns 200", func(t *testing.T) {
		resp := doDelete(t, fmt.Sprintf("%s/release/t1?lease_id=%s", ts.URL, lease.LeaseID))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Nil(t, coord.Status("t1"))
	})

	t.Run("release again is a no-op 200", func(t *testing.T) {
		resp := doDelete(t, ts.URL+"/release/t1?lease_id=anything")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown task returns 404", func(t *testing.T) {
		resp := doDelete(t, ts.URL+"/release/never-seen?lease_id=x")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestExtendEndpoint(t *testing.T) {
	ts, coord, clock := setupTestServer(t)

	lease, _, err := coord.Claim("t1", "agent-x", 60*time.Second, false)
	require.NoError(t, err)

	t.Run("extends from now", func(t *testing.T) {
		clock.Advance(30 * time.Second)

		resp := postJSON(t, ts.URL+"/extend", ExtendRequest{
			TaskID: "t1", LeaseID: lease.LeaseID, AdditionalTTLSeconds: 120,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var extended ExtendResponse
		decodeBody(t, resp, &extended)
		assert.Equal(t, clock.Now().Add(120*time.Second), extended.ExpiresAt.UTC())
	})

	t.Run("mismatched token returns 403", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/extend", ExtendRequest{
			TaskID: "t1", LeaseID: "bogus", AdditionalTTLSeconds: 60,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown task returns 404", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/extend", ExtendRequest{
			TaskID: "ghost", LeaseID: "x", AdditionalTTLSeconds: 60,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestStatusEndpoint(t *testing.T) {
	ts, coord, _ := setupTestServer(t)

	t.Run("unclaimed task reports null lease", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/status/t1")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status StatusResponse
		decodeBody(t, resp, &status)
		assert.Nil(t, status.Lease)
	})

	t.Run("claimed task reports the lease", func(t *testing.T) {
		lease, _, err := coord.Claim("t1", "agent-x", 60*time.Second, false)
		require.NoError(t, err)

		resp, err := http.Get(ts.URL + "/status/t1")
		require.NoError(t, err)

		var status StatusResponse
		decodeBody(t, resp, &status)
		require.NotNil(t, status.Lease)
		assert.Equal(t, lease.LeaseID, status.Lease.LeaseID)
		assert.Equal(t, "agent-x", status.Lease.Holder)
	})
}

func TestReservationsEndpoint(t *testing.T) {
	ts, coord, _ := setupTestServer(t)

	_, _, err := coord.Claim("t1", "agent-x", 60*time.Second, false)
	require.NoError(t, err)
	_, _, err = coord.Claim("t2", "agent-y", 60*time.Second, false)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/reservations")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var leases []*taskboard.Lease
	decodeBody(t, resp, &leases)
	require.Len(t, leases, 2)
	assert.Equal(t, "t1", leases[0].TaskID)
	assert.Equal(t, "t2", leases[1].TaskID)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
}
