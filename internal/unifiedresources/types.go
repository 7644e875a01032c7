// Package unifiedresources merges the backend's heterogeneous collections
// into one normalized, filterable resource list.
package unifiedresources

import "time"

// Resource is one row of the unified list. It is rebuilt from the latest
// collections on every projection and never persisted.
type Resource struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         ResourceType `json:"type"`
	Source       DataSource   `json:"source"`
	Status       string       `json:"status"`
	Address      string       `json:"address,omitempty"`
	Namespace    string       `json:"namespace,omitempty"`
	SyncStatus   string       `json:"syncStatus,omitempty"`
	HealthStatus string       `json:"healthStatus,omitempty"`
	LastUpdated  *time.Time   `json:"lastUpdated,omitempty"`
}

// ResourceType represents the kind of resource.
type ResourceType string

const (
	ResourceTypeHost        ResourceType = "host"
	ResourceTypeWorkload    ResourceType = "workload"
	ResourceTypeProxmoxNode ResourceType = "proxmox-node"
	ResourceTypeProxmoxVM   ResourceType = "proxmox-vm"
	ResourceTypeProxmoxLXC  ResourceType = "proxmox-lxc"
	ResourceTypeArgoCDApp   ResourceType = "argocd-app"
)

// AllResourceTypes lists every kind in unified list order.
var AllResourceTypes = []ResourceType{
	ResourceTypeHost,
	ResourceTypeWorkload,
	ResourceTypeProxmoxNode,
	ResourceTypeProxmoxVM,
	ResourceTypeProxmoxLXC,
	ResourceTypeArgoCDApp,
}

// DataSource identifies the integration a resource came from.
type DataSource string

const (
	SourceKubernetes DataSource = "kubernetes"
	SourceProxmox    DataSource = "proxmox"
	SourceArgoCD     DataSource = "argocd"
)

// AllSources lists every data source.
var AllSources = []DataSource{SourceKubernetes, SourceProxmox, SourceArgoCD}

// Normalized statuses produced by the projections. Host and workload statuses
// pass through unchanged.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusPaused  = "paused"
	StatusPending = "pending"
	StatusUnknown = "unknown"
)
