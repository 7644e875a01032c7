package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/swr"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
)

// subscription is the type-erased surface the feeds need from each hook.
type subscription interface {
	Updates() <-chan struct{}
	Done() <-chan struct{}
	Refresh() bool
	Close()
}

type waiter interface {
	waitFirst(ctx context.Context) error
}

type typedSub[T any] struct{ *swr.Subscription[T] }

func (s typedSub[T]) waitFirst(ctx context.Context) error {
	_, err := s.Wait(ctx)
	return err
}

// fanIn forwards every member's update signal to one channel until closed.
type fanIn struct {
	members []subscription
	updates chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newFanIn(members ...subscription) *fanIn {
	f := &fanIn{
		members: members,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, m := range members {
		f.wg.Add(1)
		go func(m subscription) {
			defer f.wg.Done()
			for {
				select {
				case <-m.Updates():
					select {
					case f.updates <- struct{}{}:
					default:
					}
				case <-m.Done():
					return
				case <-f.done:
					return
				}
			}
		}(m)
	}
	return f
}

func (f *fanIn) refresh() {
	for _, m := range f.members {
		m.Refresh()
	}
}

func (f *fanIn) close() {
	f.once.Do(func() {
		close(f.done)
		for _, m := range f.members {
			m.Close()
		}
		f.wg.Wait()
	})
}

// ResourceFeed merges the six collection hooks into the unified view.
type ResourceFeed struct {
	hosts     *swr.Subscription[*models.Response[[]models.Host]]
	workloads *swr.Subscription[*models.Response[[]models.Workload]]
	nodes     *swr.Subscription[*models.Response[[]models.ProxmoxNode]]
	vms       *swr.Subscription[*models.Response[[]models.ProxmoxResource]]
	lxcs      *swr.Subscription[*models.Response[[]models.ProxmoxResource]]
	apps      *swr.Subscription[*models.Response[[]models.ArgoApplication]]

	waiters []waiter
	fan     *fanIn
	now     func() time.Time
}

// NewResourceFeed subscribes to every collection the unified list needs.
func NewResourceFeed(h *Hooks) *ResourceFeed {
	f := &ResourceFeed{
		hosts:     h.Hosts(),
		workloads: h.Workloads(),
		nodes:     h.ProxmoxNodes(),
		vms:       h.ProxmoxResources(models.ProxmoxResourceVM),
		lxcs:      h.ProxmoxResources(models.ProxmoxResourceLXC),
		apps:      h.ArgoCDApplications(),
		now:       time.Now,
	}
	f.waiters = []waiter{
		typedSub[*models.Response[[]models.Host]]{f.hosts},
		typedSub[*models.Response[[]models.Workload]]{f.workloads},
		typedSub[*models.Response[[]models.ProxmoxNode]]{f.nodes},
		typedSub[*models.Response[[]models.ProxmoxResource]]{f.vms},
		typedSub[*models.Response[[]models.ProxmoxResource]]{f.lxcs},
		typedSub[*models.Response[[]models.ArgoApplication]]{f.apps},
	}
	f.fan = newFanIn(f.hosts, f.workloads, f.nodes, f.vms, f.lxcs, f.apps)
	return f
}

// View builds the unified list from the latest state of every collection.
// Errors are listed per collection while the last good data stays in place.
func (f *ResourceFeed) View() unifiedresources.View {
	hosts := f.hosts.State()
	workloads := f.workloads.State()
	nodes := f.nodes.State()
	vms := f.vms.State()
	lxcs := f.lxcs.State()
	apps := f.apps.State()

	collections := unifiedresources.Collections{
		Hosts:        hosts.Data.Payload(),
		Workloads:    workloads.Data.Payload(),
		ProxmoxNodes: nodes.Data.Payload(),
		ProxmoxVMs:   vms.Data.Payload(),
		ProxmoxLXCs:  lxcs.Data.Payload(),
		ArgoApps:     apps.Data.Payload(),
	}

	errs := collectErrors(
		namedErr{"hosts", hosts.Err},
		namedErr{"workloads", workloads.Err},
		namedErr{"proxmox_nodes", nodes.Err},
		namedErr{"proxmox_vms", vms.Err},
		namedErr{"proxmox_lxcs", lxcs.Err},
		namedErr{"argocd_applications", apps.Err},
	)

	return unifiedresources.View{
		Resources: unifiedresources.Unify(collections, f.now()),
		IsLoading: unifiedresources.AnyLoading(
			hosts.IsLoading, workloads.IsLoading, nodes.IsLoading,
			vms.IsLoading, lxcs.IsLoading, apps.IsLoading,
		),
		Errors: errs,
	}
}

// Await blocks until every collection has a first result and returns the
// view.
func (f *ResourceFeed) Await(ctx context.Context) (unifiedresources.View, error) {
	if err := awaitAll(ctx, f.waiters); err != nil {
		return f.View(), err
	}
	return f.View(), nil
}

// Updates signals whenever any collection changes.
func (f *ResourceFeed) Updates() <-chan struct{} { return f.fan.updates }

// Refresh forces every collection to refetch.
func (f *ResourceFeed) Refresh() { f.fan.refresh() }

// Close unsubscribes from every collection.
func (f *ResourceFeed) Close() { f.fan.close() }

func awaitAll(ctx context.Context, waiters []waiter) error {
	for _, w := range waiters {
		if err := w.waitFirst(ctx); err != nil {
			return err
		}
	}
	return nil
}
