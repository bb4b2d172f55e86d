package iaas

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New("test-token")
	require.NoError(t, err)
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	c.backoffInitialInterval = time.Millisecond
	return c
}

func TestNewRejectsEmptyToken(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, KindInvalidConfig, ierr.Kind)
}

func TestCreateDropletPrefersPublicIPv4(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"droplet": {
			"id": 1, "name": "d1", "region": {"slug": "nyc3"},
			"size_slug": "s-1vcpu-2gb", "image": {"slug": "ubuntu-22-04-x64"},
			"status": "new",
			"networks": {"v4": [
				{"ip_address": "10.0.0.5", "type": "private"},
				{"ip_address": "203.0.113.10", "type": "public"}
			]}
		}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	d, err := c.CreateDroplet(t.Context(), domain.CreateRequest{Name: "d1", Region: "nyc3", Size: "s-1vcpu-2gb", Image: "ubuntu-22-04-x64"})
	require.NoError(t, err)
	require.NotNil(t, d.IPAddress)
	assert.Equal(t, "203.0.113.10", *d.IPAddress)
	assert.Equal(t, domain.DropletNew, d.Status)
}

func TestGetDropletNotFoundDoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetDroplet(t.Context(), 42)
	require.Error(t, err)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, KindNotFound, ierr.Kind)
	assert.Equal(t, int64(42), ierr.DropletID)
	assert.Equal(t, 1, attempts)
}

func TestCreateDropletRateLimitedDoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CreateDroplet(t.Context(), domain.CreateRequest{})
	require.Error(t, err)
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, KindRateLimited, ierr.Kind)
	assert.Equal(t, 1, attempts)
}

func TestCreateDropletRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"droplet": {"id": 1, "name": "d1", "region": {"slug": "nyc3"}, "size_slug": "s", "image": {"slug": "img"}, "status": "new", "networks": {"v4": []}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.CreateDroplet(t.Context(), domain.CreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDestroyDropletFailsAfterExhaustingRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.DestroyDroplet(t.Context(), 7)
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
}
