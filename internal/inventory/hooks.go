// Package inventory exposes one cached, auto-revalidating subscription per
// backend collection and merges them into the unified resource view.
package inventory

import (
	"context"
	"time"

	"github.com/rcourtman/mission-control/internal/apiclient"
	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/swr"
)

// Intervals sets how often each hook family refreshes.
type Intervals struct {
	Inventory time.Duration // hosts, workloads, combined inventory
	Status    time.Duration // health checks and Proxmox
	ArgoCD    time.Duration
	Dedupe    time.Duration
}

// DefaultIntervals returns the dashboard's polling cadence.
func DefaultIntervals() Intervals {
	return Intervals{
		Inventory: 10 * time.Second,
		Status:    30 * time.Second,
		ArgoCD:    60 * time.Second,
		Dedupe:    5 * time.Second,
	}
}

// Hooks creates subscriptions against a shared cache and client.
type Hooks struct {
	client    *apiclient.Client
	cache     *swr.Cache
	intervals Intervals
}

// NewHooks wires hooks to client and cache.
func NewHooks(client *apiclient.Client, cache *swr.Cache, intervals Intervals) *Hooks {
	return &Hooks{client: client, cache: cache, intervals: intervals}
}

// Cache returns the shared cache, e.g. to signal focus.
func (h *Hooks) Cache() *swr.Cache { return h.cache }

func (h *Hooks) options(name string, refresh time.Duration) swr.Options {
	return swr.Options{
		Name:              name,
		RefreshInterval:   refresh,
		DedupingInterval:  h.intervals.Dedupe,
		RevalidateOnFocus: true,
	}
}

// Health subscribes to the readiness check.
func (h *Hooks) Health() *swr.Subscription[models.CheckResponse] {
	return swr.Subscribe(h.cache, apiclient.PathHealthReady, h.client.Ready, h.options("health_ready", h.intervals.Status))
}

// Liveness subscribes to the liveness check.
func (h *Hooks) Liveness() *swr.Subscription[models.CheckResponse] {
	return swr.Subscribe(h.cache, apiclient.PathHealthLive, h.client.Live, h.options("health_live", h.intervals.Status))
}

// FullHealth subscribes to the detailed health report.
func (h *Hooks) FullHealth() *swr.Subscription[*models.HealthResponse] {
	return swr.Subscribe(h.cache, apiclient.PathHealth, h.client.Health, h.options("health", h.intervals.Status))
}

func (h *Hooks) Inventory() *swr.Subscription[*models.Response[models.InventoryData]] {
	return swr.Subscribe(h.cache, apiclient.PathInventory, h.client.Inventory, h.options("inventory", h.intervals.Inventory))
}

func (h *Hooks) Hosts() *swr.Subscription[*models.Response[[]models.Host]] {
	return swr.Subscribe(h.cache, apiclient.PathHosts, h.client.Hosts, h.options("hosts", h.intervals.Inventory))
}

// HostByID subscribes to one host. An empty id disables the hook.
func (h *Hooks) HostByID(id string) *swr.Subscription[*models.Response[models.Host]] {
	key := ""
	if id != "" {
		key = apiclient.HostPath(id)
	}
	fetch := func(ctx context.Context) (*models.Response[models.Host], error) {
		return h.client.Host(ctx, id)
	}
	return swr.Subscribe(h.cache, key, fetch, h.options("host", h.intervals.Inventory))
}

func (h *Hooks) Workloads() *swr.Subscription[*models.Response[[]models.Workload]] {
	return swr.Subscribe(h.cache, apiclient.PathWorkloads, h.client.Workloads, h.options("workloads", h.intervals.Inventory))
}

// WorkloadByID subscribes to one workload. An empty id disables the hook.
func (h *Hooks) WorkloadByID(id string) *swr.Subscription[*models.Response[models.Workload]] {
	key := ""
	if id != "" {
		key = apiclient.WorkloadPath(id)
	}
	fetch := func(ctx context.Context) (*models.Response[models.Workload], error) {
		return h.client.Workload(ctx, id)
	}
	return swr.Subscribe(h.cache, key, fetch, h.options("workload", h.intervals.Inventory))
}

func (h *Hooks) ProxmoxStatus() *swr.Subscription[*models.Response[models.ProxmoxStatusData]] {
	return swr.Subscribe(h.cache, apiclient.PathProxmoxStatus, h.client.ProxmoxStatus, h.options("proxmox_status", h.intervals.Status))
}

func (h *Hooks) ProxmoxNodes() *swr.Subscription[*models.Response[[]models.ProxmoxNode]] {
	return swr.Subscribe(h.cache, apiclient.PathProxmoxNodes, h.client.ProxmoxNodes, h.options("proxmox_nodes", h.intervals.Status))
}

// ProxmoxResources subscribes to the VM or LXC listing.
func (h *Hooks) ProxmoxResources(t models.ProxmoxResourceType) *swr.Subscription[*models.Response[[]models.ProxmoxResource]] {
	fetch := func(ctx context.Context) (*models.Response[[]models.ProxmoxResource], error) {
		return h.client.ProxmoxResources(ctx, t)
	}
	return swr.Subscribe(h.cache, apiclient.ProxmoxResourcesPath(t), fetch, h.options("proxmox_"+string(t), h.intervals.Status))
}

func (h *Hooks) ArgoCDStatus() *swr.Subscription[*models.Response[models.ArgoCDStatusData]] {
	return swr.Subscribe(h.cache, apiclient.PathArgoCDStatus, h.client.ArgoCDStatus, h.options("argocd_status", h.intervals.ArgoCD))
}

func (h *Hooks) ArgoCDApplications() *swr.Subscription[*models.Response[[]models.ArgoApplication]] {
	return swr.Subscribe(h.cache, apiclient.PathArgoCDApplications, h.client.ArgoCDApplications, h.options("argocd_applications", h.intervals.ArgoCD))
}
