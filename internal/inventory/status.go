package inventory

import (
	"context"

	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/swr"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
)

// Summary mirrors the dashboard's summary cards.
type Summary struct {
	HostsCount       int                            `json:"hostsCount"`
	WorkloadsCount   int                            `json:"workloadsCount"`
	ProxmoxConnected bool                           `json:"proxmoxConnected"`
	ArgoCDConnected  bool                           `json:"argocdConnected"`
	IsLoading        bool                           `json:"isLoading"`
	Errors           []unifiedresources.SourceError `json:"errors,omitempty"`
}

// Health is the backend's health as seen through the health check hooks.
type Health struct {
	Ready     bool                           `json:"ready"`
	Live      bool                           `json:"live"`
	Report    *models.HealthResponse         `json:"report,omitempty"`
	IsLoading bool                           `json:"isLoading"`
	Errors    []unifiedresources.SourceError `json:"errors,omitempty"`
}

// StatusFeed holds the summary and health subscriptions.
type StatusFeed struct {
	inventory *swr.Subscription[*models.Response[models.InventoryData]]
	proxmox   *swr.Subscription[*models.Response[models.ProxmoxStatusData]]
	argocd    *swr.Subscription[*models.Response[models.ArgoCDStatusData]]
	ready     *swr.Subscription[models.CheckResponse]
	live      *swr.Subscription[models.CheckResponse]
	report    *swr.Subscription[*models.HealthResponse]

	waiters []waiter
	fan     *fanIn
}

// NewStatusFeed subscribes to the inventory, integration status and health
// hooks.
func NewStatusFeed(h *Hooks) *StatusFeed {
	f := &StatusFeed{
		inventory: h.Inventory(),
		proxmox:   h.ProxmoxStatus(),
		argocd:    h.ArgoCDStatus(),
		ready:     h.Health(),
		live:      h.Liveness(),
		report:    h.FullHealth(),
	}
	f.waiters = []waiter{
		typedSub[*models.Response[models.InventoryData]]{f.inventory},
		typedSub[*models.Response[models.ProxmoxStatusData]]{f.proxmox},
		typedSub[*models.Response[models.ArgoCDStatusData]]{f.argocd},
		typedSub[models.CheckResponse]{f.ready},
		typedSub[models.CheckResponse]{f.live},
		typedSub[*models.HealthResponse]{f.report},
	}
	f.fan = newFanIn(f.inventory, f.proxmox, f.argocd, f.ready, f.live, f.report)
	return f
}

// Summary returns the current summary. Connectivity is false until the
// status hooks report otherwise.
func (f *StatusFeed) Summary() Summary {
	inv := f.inventory.State()
	px := f.proxmox.State()
	argo := f.argocd.State()

	s := Summary{
		IsLoading: unifiedresources.AnyLoading(inv.IsLoading, px.IsLoading, argo.IsLoading),
	}
	d := inv.Data.Payload()
	s.HostsCount = len(d.Hosts)
	s.WorkloadsCount = len(d.Workloads)
	s.ProxmoxConnected = px.Data.Payload().Connected && px.Err == nil
	s.ArgoCDConnected = argo.Data.Payload().Connected && argo.Err == nil
	s.Errors = collectErrors(
		namedErr{"inventory", inv.Err},
		namedErr{"proxmox_status", px.Err},
		namedErr{"argocd_status", argo.Err},
	)
	return s
}

// Health returns the current health check results.
func (f *StatusFeed) Health() Health {
	ready := f.ready.State()
	live := f.live.State()
	report := f.report.State()

	return Health{
		Ready:     ready.Err == nil && ready.Data != nil,
		Live:      live.Err == nil && live.Data != nil,
		Report:    report.Data,
		IsLoading: unifiedresources.AnyLoading(ready.IsLoading, live.IsLoading, report.IsLoading),
		Errors: collectErrors(
			namedErr{"health_ready", ready.Err},
			namedErr{"health_live", live.Err},
			namedErr{"health", report.Err},
		),
	}
}

// Await blocks until every status hook has a first result.
func (f *StatusFeed) Await(ctx context.Context) error {
	return awaitAll(ctx, f.waiters)
}

// Updates signals whenever any status hook changes.
func (f *StatusFeed) Updates() <-chan struct{} { return f.fan.updates }

// Refresh forces every status hook to refetch.
func (f *StatusFeed) Refresh() { f.fan.refresh() }

// Close unsubscribes from every status hook.
func (f *StatusFeed) Close() { f.fan.close() }

type namedErr struct {
	name string
	err  error
}

func collectErrors(errs ...namedErr) []unifiedresources.SourceError {
	var out []unifiedresources.SourceError
	for _, e := range errs {
		if e.err != nil {
			out = append(out, unifiedresources.SourceError{Collection: e.name, Message: e.err.Error()})
		}
	}
	return out
}
