package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeBodies = map[string]string{
	"/health/ready":                      `{"status":"ready"}`,
	"/health/live":                       `{"status":"alive"}`,
	"/health":                            `{"status":"ok","uptime":90,"version":"1.4.0","database":{"connected":true}}`,
	"/api/v1/inventory":                  `{"data":{"hosts":[{"id":"h1","name":"k3s-a","status":"online"}],"workloads":[]}}`,
	"/api/v1/inventory/hosts":            `{"data":[{"id":"h1","name":"k3s-a","type":"kubernetes","status":"online","addresses":{"lan":"192.168.1.20"},"cpu_usage":12.5}]}`,
	"/api/v1/inventory/hosts/h1":         `{"data":{"id":"h1","name":"k3s-a","type":"kubernetes","status":"online","addresses":{"lan":"192.168.1.20","tailscale":"100.64.0.2"}}}`,
	"/api/v1/inventory/workloads":        `{"data":[{"id":"w1","name":"grafana","namespace":"monitoring","type":"deployment","status":"running","replicas":2,"ready_replicas":1}]}`,
	"/api/v1/inventory/workloads/w1":     `{"data":{"id":"w1","name":"grafana","namespace":"monitoring","type":"deployment","status":"running"}}`,
	"/api/v1/inventory/refresh":          `{"data":{"hosts_count":5,"workloads_count":12}}`,
	"/api/v1/proxmox/status":             `{"data":{"connected":true}}`,
	"/api/v1/proxmox/nodes":              `{"data":[{"node":"pve1","status":"online","maxcpu":8,"uptime":3600}]}`,
	"/api/v1/proxmox/resources?type=vm":  `{"data":[{"id":"qemu/100","type":"qemu","name":"truenas","node":"pve1","status":"running"}]}`,
	"/api/v1/proxmox/resources?type=lxc": `{"data":[{"id":"lxc/101","type":"lxc","node":"pve1","status":"stopped"}]}`,
	"/api/v1/argocd/status":              `{"data":{"connected":true}}`,
	"/api/v1/argocd/applications":        `{"data":[{"name":"homepage","namespace":"argocd","syncStatus":"Synced","healthStatus":"Healthy","revision":"abc123"}]}`,
}

type fakeAPI struct {
	mu        sync.Mutex
	overrides map[string]int
	nulls     map[string]bool
	posts     atomic.Int32
	lastAuth  atomic.Value
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	if r.Method == http.MethodPost {
		f.posts.Add(1)
	}
	f.lastAuth.Store(r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	code, failing := f.overrides[key]
	null := f.nulls[key]
	f.mu.Unlock()
	if null {
		_, _ = io.WriteString(w, "null")
		return
	}
	if failing {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, `{"data":null,"error":"backend failure"}`)
		return
	}
	body, ok := fakeBodies[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"data":null,"error":"not found"}`)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (f *fakeAPI) fail(key string, code int) {
	f.mu.Lock()
	f.overrides[key] = code
	f.mu.Unlock()
}

// answerNull makes key return 200 with a literal null body.
func (f *fakeAPI) answerNull(keys ...string) {
	f.mu.Lock()
	for _, key := range keys {
		f.nulls[key] = true
	}
	f.mu.Unlock()
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	api := &fakeAPI{overrides: map[string]int{}, nulls: map[string]bool{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv.URL
}

// clearEnv keeps the developer's MC_* settings out of command tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MC_API_URL", "MC_API_TOKEN", "MC_CF_CLIENT_ID", "MC_CF_CLIENT_SECRET",
		"MC_DNS_CACHE_TTL", "MC_METRICS_ADDR", "MC_LOG_LEVEL", "MC_LOG_FORMAT",
		"MC_CACHE_IDLE_RETENTION",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("MC_ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("MC_DNS_CACHE_TTL", "0s")
	t.Setenv("MC_LOG_LEVEL", "error")
	t.Setenv("MC_LOG_FORMAT", "json")
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append(args, "--wait", "5s"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := Version, BuildTime, GitCommit
	defer func() {
		Version, BuildTime, GitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2026-01-01"
	GitCommit = "abcdef"
	output, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "Mission Control 1.2.3")
	assert.Contains(t, output, "Built: 2026-01-01")
	assert.Contains(t, output, "Commit: abcdef")

	BuildTime = "unknown"
	GitCommit = "unknown"
	output, err = runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "Mission Control 1.2.3")
	assert.NotContains(t, output, "Built:")
	assert.NotContains(t, output, "Commit:")
}

func TestResourcesJSON(t *testing.T) {
	_, url := newFakeAPI(t)

	output, err := runCmd(t, "resources", "--api-url", url, "-o", "json")
	require.NoError(t, err)

	var view unifiedresources.View
	require.NoError(t, json.Unmarshal([]byte(output), &view))
	assert.False(t, view.IsLoading)

	names := make([]string, 0, len(view.Resources))
	for _, r := range view.Resources {
		names = append(names, r.Name)
	}
	// The unnamed container falls back to its ID.
	assert.Equal(t, []string{"k3s-a", "grafana", "pve1", "truenas", "lxc/101", "homepage"}, names)
}

func TestResourcesFiltersAndTable(t *testing.T) {
	_, url := newFakeAPI(t)

	output, err := runCmd(t, "resources", "--api-url", url, "--source", "proxmox", "--search", "TRUE")
	require.NoError(t, err)
	assert.Contains(t, output, "truenas")
	assert.NotContains(t, output, "grafana")
	assert.Contains(t, output, "1 resources")
}

func TestResourcesRejectsBadFlags(t *testing.T) {
	_, err := runCmd(t, "resources", "--source", "docker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")

	_, err = runCmd(t, "resources", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestResourcesShowsSourceErrors(t *testing.T) {
	api, url := newFakeAPI(t)
	api.fail("/api/v1/argocd/applications", http.StatusBadGateway)

	output, err := runCmd(t, "resources", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "k3s-a")
	assert.Contains(t, output, "argocd_applications: API error: Bad Gateway")
}

func TestHostsAndHostCmd(t *testing.T) {
	api, url := newFakeAPI(t)

	output, err := runCmd(t, "hosts", "--api-url", url, "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, output, "k3s-a")
	assert.Contains(t, output, "192.168.1.20")
	assert.Contains(t, output, "12.5%")
	assert.Equal(t, "Bearer secret", api.lastAuth.Load())

	output, err = runCmd(t, "host", "h1", "--api-url", url, "-o", "json")
	require.NoError(t, err)
	var host models.Host
	require.NoError(t, json.Unmarshal([]byte(output), &host))
	assert.Equal(t, "100.64.0.2", host.Addresses.Tailscale)

	_, err = runCmd(t, "host", "nope", "--api-url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestWorkloadsCmd(t *testing.T) {
	_, url := newFakeAPI(t)

	output, err := runCmd(t, "workloads", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "grafana")
	assert.Contains(t, output, "1/2")

	output, err = runCmd(t, "workload", "w1", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "monitoring")
}

func TestProxmoxAndArgoCDCmds(t *testing.T) {
	_, url := newFakeAPI(t)

	output, err := runCmd(t, "proxmox", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "Proxmox connected:")
	assert.Contains(t, output, "pve1")
	assert.Contains(t, output, "truenas")
	assert.Contains(t, output, "lxc/101")

	output, err = runCmd(t, "argocd", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "ArgoCD connected:")
	assert.Contains(t, output, "homepage")
	assert.Contains(t, output, "abc123")
}

func TestCommandsTolerateNullBodies(t *testing.T) {
	api, url := newFakeAPI(t)
	api.answerNull(
		"/api/v1/inventory/hosts", "/api/v1/inventory/hosts/h1", "/api/v1/inventory/workloads",
		"/api/v1/proxmox/status", "/api/v1/proxmox/nodes",
		"/api/v1/proxmox/resources?type=vm", "/api/v1/proxmox/resources?type=lxc",
		"/api/v1/argocd/status", "/api/v1/argocd/applications",
	)

	output, err := runCmd(t, "hosts", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "NAME")
	assert.NotContains(t, output, "k3s-a")

	_, err = runCmd(t, "workloads", "--api-url", url)
	require.NoError(t, err)

	output, err = runCmd(t, "proxmox", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "Proxmox connected:")
	assert.NotContains(t, output, "yes")

	output, err = runCmd(t, "argocd", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "ArgoCD connected:")
	assert.NotContains(t, output, "yes")

	_, err = runCmd(t, "host", "h1", "--api-url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestHealthCmd(t *testing.T) {
	api, url := newFakeAPI(t)

	output, err := runCmd(t, "health", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "1.4.0")
	assert.Contains(t, output, "1m30s")
	assert.Contains(t, output, url)

	api.fail("/health/ready", http.StatusServiceUnavailable)
	output, err = runCmd(t, "health", "--api-url", url)
	require.Error(t, err)
	assert.Contains(t, output, "health_ready: API error: Service Unavailable")
}

func TestSyncCmd(t *testing.T) {
	api, url := newFakeAPI(t)

	output, err := runCmd(t, "sync", "--api-url", url)
	require.NoError(t, err)
	assert.Contains(t, output, "Synced: 5 hosts, 12 workloads")
	assert.Equal(t, int32(1), api.posts.Load())

	api.fail("/api/v1/inventory/refresh", http.StatusInternalServerError)
	output, err = runCmd(t, "sync", "--api-url", url)
	require.Error(t, err)
	assert.Contains(t, output, "API error: Internal Server Error")
}

func TestInvalidConfigurationFails(t *testing.T) {
	_, err := runCmd(t, "hosts", "--api-url", "ftp://example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// syncBuffer is a bytes.Buffer safe for one writer goroutine and test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcherDraw(t *testing.T) {
	var loading atomic.Bool
	loading.Store(true)

	out := &syncBuffer{}
	w := &watcher{
		out:    out,
		filter: unifiedresources.Filter{Source: unifiedresources.SourceArgoCD},
		view: func() unifiedresources.View {
			return unifiedresources.View{
				Resources: []unifiedresources.Resource{
					{Name: "k3s-a", Type: unifiedresources.ResourceTypeHost, Source: unifiedresources.SourceKubernetes, Status: "online"},
					{Name: "homepage", Type: unifiedresources.ResourceTypeArgoCDApp, Source: unifiedresources.SourceArgoCD, Status: "online"},
				},
				IsLoading: loading.Load(),
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, updates) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Loading...")
	}, time.Second, 10*time.Millisecond)
	first := out.String()
	assert.NotContains(t, first, "homepage", "rows stay hidden while a collection is loading")
	assert.NotContains(t, first, "resources (")

	loading.Store(false)
	updates <- struct{}{}
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "Mission Control") == 2
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	second := strings.TrimPrefix(out.String(), first)
	assert.Contains(t, second, "homepage")
	assert.NotContains(t, second, "k3s-a")
	assert.NotContains(t, second, "Loading...")
	assert.Contains(t, second, "1 resources (kubernetes 0, proxmox 0, argocd 1)")
	assert.NotContains(t, out.String(), clearScreen)
}

func TestReadKeys(t *testing.T) {
	var focus, refresh, quit int
	readKeys(context.Background(), strings.NewReader("\nr\n\nq\nr\n"), keyActions{
		focus:   func() { focus++ },
		refresh: func() { refresh++ },
		quit:    func() { quit++ },
	})

	assert.Equal(t, 2, focus)
	assert.Equal(t, 1, refresh)
	assert.Equal(t, 1, quit)
}

func TestMetricsHandler(t *testing.T) {
	srv := httptest.NewServer(metricsHandler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mission_control_cache_entries")

	resp, err = http.Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
