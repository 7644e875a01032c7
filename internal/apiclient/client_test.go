package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcerrors "github.com/rcourtman/mission-control/internal/errors"
	"github.com/rcourtman/mission-control/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "http://", "://bad"} {
		_, err := New(Config{BaseURL: raw})
		assert.Error(t, err, "base url %q", raw)
	}
}

func TestGetSendsJSONHeadersAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, PathHosts, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("CF-Access-Client-Id"))
		_, _ = io.WriteString(w, `{"data":[{"id":"h1","name":"node-a","type":"k8s-node","status":"online"}]}`)
	})

	resp, err := client.Hosts(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "h1", resp.Data[0].ID)
	assert.Equal(t, models.HostStatus("online"), resp.Data[0].Status)
}

func TestSetTokenAppliesToSubsequentCalls(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":[]}`)
	}, func(c *Config) { c.Token = "first" })

	_, err := client.Workloads(context.Background())
	require.NoError(t, err)

	client.SetToken("second")
	_, err = client.Workloads(context.Background())
	require.NoError(t, err)

	client.SetToken("")
	_, err = client.Workloads(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second", ""}, seen)
}

func TestAccessServiceTokenHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-id", r.Header.Get("CF-Access-Client-Id"))
		assert.Equal(t, "client-secret", r.Header.Get("CF-Access-Client-Secret"))
		_, _ = io.WriteString(w, `{"data":{"connected":true}}`)
	}, func(c *Config) {
		c.AccessClientID = "client-id"
		c.AccessClientSecret = "client-secret"
	})

	resp, err := client.ArgoCDStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Data.Connected)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"database unavailable"}`)
	})

	_, err := client.Inventory(context.Background())
	require.Error(t, err)
	assert.Equal(t, "API error: Service Unavailable", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, mcerrors.StatusCode(err))

	var apiErr *mcerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "database unavailable", apiErr.Detail)
	assert.Equal(t, PathInventory, apiErr.Path)
}

func TestNotFoundIsClassified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/hosts/a%2Fb", r.URL.EscapedPath())
		http.NotFound(w, r)
	})

	_, err := client.Host(context.Background(), "a/b")
	require.Error(t, err)
	assert.True(t, mcerrors.IsNotFound(err))
	assert.Equal(t, "API error: Not Found", err.Error())
}

func TestDecodeErrorIsWrapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":`)
	})

	_, err := client.ProxmoxNodes(context.Background())
	require.Error(t, err)

	var apiErr *mcerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, mcerrors.ErrorTypeDecode, apiErr.Type)
}

func TestConnectionErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: baseURL, Timeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Hosts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, mcerrors.ErrConnectionFailed)
}

func TestPostEncodesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathInventoryRefresh, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"forceSync": true}, body)

		_, _ = io.WriteString(w, `{"data":{"hosts_count":5,"workloads_count":12}}`)
	})

	resp, err := client.RefreshInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Data.HostsCount)
	assert.Equal(t, 12, resp.Data.WorkloadsCount)
}

func TestProxmoxResourcesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathProxmoxResources, r.URL.Path)
		assert.Equal(t, "lxc", r.URL.Query().Get("type"))
		_, _ = io.WriteString(w, `{"data":[{"id":"lxc/101","type":"lxc","vmid":101,"name":"dns","node":"pve1","status":"running"}]}`)
	})

	resp, err := client.ProxmoxResources(context.Background(), models.ProxmoxResourceLXC)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].IsContainer())
}

func TestDNSCachingDialer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}, func(c *Config) { c.DNSCacheTTL = time.Minute })

	require.NotNil(t, client.dialer)

	ready, err := client.Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", ready["status"])
}

func TestGetJSONWithContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GetJSON[map[string]any](ctx, client, PathHealth)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
