package apiclient

import (
	"context"
	"net/url"

	"github.com/rcourtman/mission-control/internal/models"
)

// Backend paths.
const (
	PathHealth             = "/health"
	PathHealthReady        = "/health/ready"
	PathHealthLive         = "/health/live"
	PathInventory          = "/api/v1/inventory"
	PathHosts              = "/api/v1/inventory/hosts"
	PathWorkloads          = "/api/v1/inventory/workloads"
	PathInventoryRefresh   = "/api/v1/inventory/refresh"
	PathProxmoxStatus      = "/api/v1/proxmox/status"
	PathProxmoxNodes       = "/api/v1/proxmox/nodes"
	PathProxmoxResources   = "/api/v1/proxmox/resources"
	PathArgoCDStatus       = "/api/v1/argocd/status"
	PathArgoCDApplications = "/api/v1/argocd/applications"
)

// HostPath returns the single-host path for id.
func HostPath(id string) string {
	return PathHosts + "/" + url.PathEscape(id)
}

// WorkloadPath returns the single-workload path for id.
func WorkloadPath(id string) string {
	return PathWorkloads + "/" + url.PathEscape(id)
}

// ProxmoxResourcesPath returns the resource listing path filtered to t.
func ProxmoxResourcesPath(t models.ProxmoxResourceType) string {
	return PathProxmoxResources + "?type=" + url.QueryEscape(string(t))
}

func getEnvelope[T any](ctx context.Context, c *Client, path string) (*models.Response[T], error) {
	return GetJSON[*models.Response[T]](ctx, c, path)
}

// Health fetches the full health report.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	return GetJSON[*models.HealthResponse](ctx, c, PathHealth)
}

// Ready fetches the readiness check.
func (c *Client) Ready(ctx context.Context) (models.CheckResponse, error) {
	return GetJSON[models.CheckResponse](ctx, c, PathHealthReady)
}

// Live fetches the liveness check.
func (c *Client) Live(ctx context.Context) (models.CheckResponse, error) {
	return GetJSON[models.CheckResponse](ctx, c, PathHealthLive)
}

func (c *Client) Inventory(ctx context.Context) (*models.Response[models.InventoryData], error) {
	return getEnvelope[models.InventoryData](ctx, c, PathInventory)
}

func (c *Client) Hosts(ctx context.Context) (*models.Response[[]models.Host], error) {
	return getEnvelope[[]models.Host](ctx, c, PathHosts)
}

func (c *Client) Host(ctx context.Context, id string) (*models.Response[models.Host], error) {
	return getEnvelope[models.Host](ctx, c, HostPath(id))
}

func (c *Client) Workloads(ctx context.Context) (*models.Response[[]models.Workload], error) {
	return getEnvelope[[]models.Workload](ctx, c, PathWorkloads)
}

func (c *Client) Workload(ctx context.Context, id string) (*models.Response[models.Workload], error) {
	return getEnvelope[models.Workload](ctx, c, WorkloadPath(id))
}

// RefreshInventory asks the backend to resync its inventory now.
func (c *Client) RefreshInventory(ctx context.Context) (*models.Response[models.RefreshResult], error) {
	return PostJSON[*models.Response[models.RefreshResult]](ctx, c, PathInventoryRefresh, models.RefreshRequest{ForceSync: true})
}

func (c *Client) ProxmoxStatus(ctx context.Context) (*models.Response[models.ProxmoxStatusData], error) {
	return getEnvelope[models.ProxmoxStatusData](ctx, c, PathProxmoxStatus)
}

func (c *Client) ProxmoxNodes(ctx context.Context) (*models.Response[[]models.ProxmoxNode], error) {
	return getEnvelope[[]models.ProxmoxNode](ctx, c, PathProxmoxNodes)
}

func (c *Client) ProxmoxResources(ctx context.Context, t models.ProxmoxResourceType) (*models.Response[[]models.ProxmoxResource], error) {
	return getEnvelope[[]models.ProxmoxResource](ctx, c, ProxmoxResourcesPath(t))
}

func (c *Client) ArgoCDStatus(ctx context.Context) (*models.Response[models.ArgoCDStatusData], error) {
	return getEnvelope[models.ArgoCDStatusData](ctx, c, PathArgoCDStatus)
}

func (c *Client) ArgoCDApplications(ctx context.Context) (*models.Response[[]models.ArgoApplication], error) {
	return getEnvelope[[]models.ArgoApplication](ctx, c, PathArgoCDApplications)
}
