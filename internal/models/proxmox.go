package models

import "time"

// ProxmoxStatusData reports whether the backend can reach Proxmox.
type ProxmoxStatusData struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

// ProxmoxNode mirrors an entry of the PVE /nodes listing.
type ProxmoxNode struct {
	Node   string   `json:"node"`
	Status string   `json:"status,omitempty"`
	MaxCPU int      `json:"maxcpu,omitempty"`
	MaxMem int64    `json:"maxmem,omitempty"`
	CPU    *float64 `json:"cpu,omitempty"`
	Mem    *int64   `json:"mem,omitempty"`
	Uptime int64    `json:"uptime,omitempty"`
}

// ProxmoxResourceType selects guests in /api/v1/proxmox/resources.
type ProxmoxResourceType string

const (
	ProxmoxResourceVM  ProxmoxResourceType = "vm"
	ProxmoxResourceLXC ProxmoxResourceType = "lxc"
)

// ProxmoxResource mirrors an entry of the PVE /cluster/resources listing.
type ProxmoxResource struct {
	ID       string   `json:"id"`   // e.g. "qemu/100" or "lxc/101"
	Type     string   `json:"type"` // "qemu" or "lxc"
	VMID     int      `json:"vmid,omitempty"`
	Name     string   `json:"name,omitempty"`
	Node     string   `json:"node,omitempty"`
	Status   string   `json:"status,omitempty"`
	Template int      `json:"template,omitempty"`
	MaxCPU   int      `json:"maxcpu,omitempty"`
	MaxMem   int64    `json:"maxmem,omitempty"`
	CPU      *float64 `json:"cpu,omitempty"`
	Mem      *int64   `json:"mem,omitempty"`
	Uptime   int64    `json:"uptime,omitempty"`
	Tags     string   `json:"tags,omitempty"`
}

// IsContainer reports whether the guest is an LXC container.
func (r ProxmoxResource) IsContainer() bool {
	return r.Type == "lxc"
}
