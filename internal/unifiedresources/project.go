package unifiedresources

import (
	"fmt"
	"time"

	"github.com/rcourtman/mission-control/internal/models"
)

// Record is one backend item awaiting projection. The set of implementations
// is closed; Project handles every one of them.
type Record interface {
	Kind() ResourceType
	record()
}

// HostRecord wraps a Kubernetes host.
type HostRecord struct{ models.Host }

// WorkloadRecord wraps a Kubernetes workload.
type WorkloadRecord struct{ models.Workload }

// ProxmoxNodeRecord wraps a Proxmox cluster node.
type ProxmoxNodeRecord struct{ models.ProxmoxNode }

// ProxmoxResourceRecord wraps a Proxmox VM or LXC container.
type ProxmoxResourceRecord struct{ models.ProxmoxResource }

// ArgoAppRecord wraps an ArgoCD application.
type ArgoAppRecord struct{ models.ArgoApplication }

func (HostRecord) Kind() ResourceType        { return ResourceTypeHost }
func (WorkloadRecord) Kind() ResourceType    { return ResourceTypeWorkload }
func (ProxmoxNodeRecord) Kind() ResourceType { return ResourceTypeProxmoxNode }
func (ArgoAppRecord) Kind() ResourceType     { return ResourceTypeArgoCDApp }

func (r ProxmoxResourceRecord) Kind() ResourceType {
	if r.IsContainer() {
		return ResourceTypeProxmoxLXC
	}
	return ResourceTypeProxmoxVM
}

func (HostRecord) record()            {}
func (WorkloadRecord) record()        {}
func (ProxmoxNodeRecord) record()     {}
func (ProxmoxResourceRecord) record() {}
func (ArgoAppRecord) record()         {}

// Project converts one record into a unified resource. now stamps records
// that carry no timestamp of their own.
func Project(r Record, now time.Time) Resource {
	switch rec := r.(type) {
	case HostRecord:
		return projectHost(rec.Host)
	case WorkloadRecord:
		return projectWorkload(rec.Workload)
	case ProxmoxNodeRecord:
		return projectProxmoxNode(rec.ProxmoxNode, now)
	case ProxmoxResourceRecord:
		return projectProxmoxResource(rec.ProxmoxResource)
	case ArgoAppRecord:
		return projectArgoApp(rec.ArgoApplication)
	default:
		panic(fmt.Sprintf("unifiedresources: unhandled record %T", r))
	}
}

func projectHost(h models.Host) Resource {
	return Resource{
		ID:          h.ID,
		Name:        h.Name,
		Type:        ResourceTypeHost,
		Source:      SourceKubernetes,
		Status:      string(h.Status),
		Address:     h.PrimaryAddress(),
		LastUpdated: firstTime(h.LastSeenAt, h.UpdatedAt),
	}
}

func projectWorkload(w models.Workload) Resource {
	return Resource{
		ID:           w.ID,
		Name:         w.Name,
		Type:         ResourceTypeWorkload,
		Source:       SourceKubernetes,
		Status:       string(w.Status),
		Namespace:    w.Namespace,
		HealthStatus: w.HealthStatus,
		LastUpdated:  firstTime(w.LastUpdatedAt, w.UpdatedAt),
	}
}

func projectProxmoxNode(n models.ProxmoxNode, now time.Time) Resource {
	stamp := now
	return Resource{
		ID:          n.Node,
		Name:        n.Node,
		Type:        ResourceTypeProxmoxNode,
		Source:      SourceProxmox,
		Status:      statusFromProxmoxNode(n.Status),
		LastUpdated: &stamp,
	}
}

func projectProxmoxResource(p models.ProxmoxResource) Resource {
	typ := ResourceTypeProxmoxVM
	if p.IsContainer() {
		typ = ResourceTypeProxmoxLXC
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return Resource{
		ID:     p.ID,
		Name:   name,
		Type:   typ,
		Source: SourceProxmox,
		Status: statusFromProxmoxGuest(p.Status),
	}
}

func projectArgoApp(a models.ArgoApplication) Resource {
	return Resource{
		ID:           a.Name,
		Name:         a.Name,
		Type:         ResourceTypeArgoCDApp,
		Source:       SourceArgoCD,
		Status:       statusFromArgoSync(a.SyncStatus),
		Namespace:    a.Namespace,
		SyncStatus:   a.SyncStatus,
		HealthStatus: a.HealthStatus,
	}
}

func firstTime(preferred *time.Time, fallback time.Time) *time.Time {
	if preferred != nil && !preferred.IsZero() {
		t := *preferred
		return &t
	}
	if fallback.IsZero() {
		return nil
	}
	return &fallback
}

// Collections are the latest backend collections feeding the unified list.
type Collections struct {
	Hosts        []models.Host
	Workloads    []models.Workload
	ProxmoxNodes []models.ProxmoxNode
	ProxmoxVMs   []models.ProxmoxResource
	ProxmoxLXCs  []models.ProxmoxResource
	ArgoApps     []models.ArgoApplication
}

// Records returns the collections as records in unified list order: hosts,
// workloads, Proxmox nodes, VMs, LXCs, then ArgoCD applications.
func (c Collections) Records() []Record {
	out := make([]Record, 0, len(c.Hosts)+len(c.Workloads)+len(c.ProxmoxNodes)+
		len(c.ProxmoxVMs)+len(c.ProxmoxLXCs)+len(c.ArgoApps))
	for _, h := range c.Hosts {
		out = append(out, HostRecord{h})
	}
	for _, w := range c.Workloads {
		out = append(out, WorkloadRecord{w})
	}
	for _, n := range c.ProxmoxNodes {
		out = append(out, ProxmoxNodeRecord{n})
	}
	for _, vm := range c.ProxmoxVMs {
		out = append(out, ProxmoxResourceRecord{vm})
	}
	for _, ct := range c.ProxmoxLXCs {
		out = append(out, ProxmoxResourceRecord{ct})
	}
	for _, a := range c.ArgoApps {
		out = append(out, ArgoAppRecord{a})
	}
	return out
}

// Unify projects every record. Identifiers are not de-duplicated across
// sources; Source tells colliding entries apart.
func Unify(c Collections, now time.Time) []Resource {
	records := c.Records()
	out := make([]Resource, 0, len(records))
	for _, r := range records {
		out = append(out, Project(r, now))
	}
	return out
}
