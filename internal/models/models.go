package models

import "time"

// Response is the envelope every backend endpoint answers with.
type Response[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// Payload returns the envelope's data, or the zero value when r is nil. A
// backend answering a literal null decodes to a nil envelope.
func (r *Response[T]) Payload() T {
	var zero T
	if r == nil {
		return zero
	}
	return r.Data
}

// HostType names the platform a host runs on.
type HostType string

const (
	HostTypeKubernetes HostType = "kubernetes"
	HostTypeProxmox    HostType = "proxmox"
	HostTypeVM         HostType = "vm"
	HostTypeLXC        HostType = "lxc"
)

// HostStatus is the backend's host state.
type HostStatus string

const (
	HostStatusOnline   HostStatus = "online"
	HostStatusOffline  HostStatus = "offline"
	HostStatusDegraded HostStatus = "degraded"
)

// HostAddresses holds the addresses a host is reachable on.
type HostAddresses struct {
	LAN       string `json:"lan,omitempty"`
	Tailscale string `json:"tailscale,omitempty"`
	Public    string `json:"public,omitempty"`
}

// Host is a physical/virtual machine or cluster node tracked by the inventory.
type Host struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        HostType       `json:"type"`
	Status      HostStatus     `json:"status"`
	Address     string         `json:"address,omitempty"`
	Addresses   *HostAddresses `json:"addresses,omitempty"`
	CPUUsage    *float64       `json:"cpu_usage,omitempty"`
	MemoryUsage *float64       `json:"memory_usage,omitempty"`
	LastSeenAt  *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PrimaryAddress prefers the LAN address over the legacy single address.
func (h Host) PrimaryAddress() string {
	if h.Addresses != nil && h.Addresses.LAN != "" {
		return h.Addresses.LAN
	}
	return h.Address
}

// WorkloadType is the Kubernetes controller kind behind a workload.
type WorkloadType string

const (
	WorkloadTypeDeployment  WorkloadType = "deployment"
	WorkloadTypeStatefulSet WorkloadType = "statefulset"
	WorkloadTypeDaemonSet   WorkloadType = "daemonset"
	WorkloadTypePod         WorkloadType = "pod"
)

// WorkloadStatus is the backend's workload phase.
type WorkloadStatus string

const (
	WorkloadStatusRunning   WorkloadStatus = "running"
	WorkloadStatusPending   WorkloadStatus = "pending"
	WorkloadStatusFailed    WorkloadStatus = "failed"
	WorkloadStatusSucceeded WorkloadStatus = "succeeded"
)

// Workload is a deployable unit running on a host.
type Workload struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          WorkloadType   `json:"type"`
	Namespace     string         `json:"namespace,omitempty"`
	Status        WorkloadStatus `json:"status"`
	HealthStatus  string         `json:"health_status,omitempty"`
	HostID        string         `json:"host_id,omitempty"`
	Replicas      *int           `json:"replicas,omitempty"`
	ReadyReplicas *int           `json:"ready_replicas,omitempty"`
	LastUpdatedAt *time.Time     `json:"last_updated_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// InventoryData is the combined payload of GET /api/v1/inventory.
type InventoryData struct {
	Hosts     []Host     `json:"hosts"`
	Workloads []Workload `json:"workloads"`
}

// RefreshRequest asks the backend for an out-of-band resync.
type RefreshRequest struct {
	ForceSync bool `json:"forceSync"`
}

// RefreshResult reports what a resync found.
type RefreshResult struct {
	HostsCount     int `json:"hosts_count"`
	WorkloadsCount int `json:"workloads_count"`
}
