package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rcourtman/mission-control/internal/inventory"
	"github.com/rcourtman/mission-control/internal/inventorysync"
	"github.com/rcourtman/mission-control/internal/logging"
	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/swr"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
	"github.com/spf13/cobra"
)

// filterFlags are shared by resources and watch.
type filterFlags struct {
	search           string
	source           string
	namespaces       []string
	excludeNamespace []string
	sort             string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.search, "search", "", "case-insensitive name substring")
	flags.StringVar(&f.source, "source", "all", "data source: kubernetes, proxmox, argocd or all")
	flags.StringSliceVar(&f.namespaces, "namespace", nil, "namespace wildcard patterns to include")
	flags.StringSliceVar(&f.excludeNamespace, "exclude-namespace", nil, "namespace wildcard patterns to exclude")
	flags.StringVar(&f.sort, "sort", "", "optional ordering: name or status")
}

func (f *filterFlags) filter() (unifiedresources.Filter, error) {
	source, err := unifiedresources.ParseSource(f.source)
	if err != nil {
		return unifiedresources.Filter{}, err
	}
	sortBy, err := unifiedresources.ParseSortBy(f.sort)
	if err != nil {
		return unifiedresources.Filter{}, err
	}
	return unifiedresources.Filter{
		Search:            f.search,
		Source:            source,
		Namespaces:        f.namespaces,
		ExcludeNamespaces: f.excludeNamespace,
		SortBy:            sortBy,
	}, nil
}

// waitFor blocks until sub has a first result and closes it. A fetch error is
// returned alongside whatever data was cached.
func waitFor[T any](ctx context.Context, sub *swr.Subscription[T]) (T, error) {
	defer sub.Close()
	st, err := sub.Wait(ctx)
	if err != nil {
		return st.Data, fmt.Errorf("wait for %s: %w", sub.Key(), err)
	}
	return st.Data, st.Err
}

func newResourcesCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List every resource from all sources as one table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			filter, err := ff.filter()
			if err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				feed := inventory.NewResourceFeed(rt.hooks)
				defer feed.Close()

				view, err := feed.Await(ctx)
				if err != nil {
					return fmt.Errorf("load resources: %w", err)
				}
				view = view.Filtered(filter).Settled()

				out := cmd.OutOrStdout()
				if output == outputJSON {
					if view.Resources == nil {
						view.Resources = []unifiedresources.Resource{}
					}
					return writeJSON(out, view)
				}
				renderView(out, view)
				return nil
			})
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newHostsCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List inventory hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				resp, err := waitFor(ctx, rt.hooks.Hosts())
				if err != nil {
					return fmt.Errorf("load hosts: %w", err)
				}
				hosts := resp.Payload()
				out := cmd.OutOrStdout()
				if output == outputJSON {
					return writeJSON(out, hosts)
				}
				rows := make([][]string, 0, len(hosts))
				for _, h := range hosts {
					rows = append(rows, []string{
						h.Name, string(h.Type), string(h.Status), orDash(h.PrimaryAddress()),
						percent(h.CPUUsage), percent(h.MemoryUsage), formatTime(h.LastSeenAt),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"NAME", "TYPE", "STATUS", "ADDRESS", "CPU", "MEMORY", "LAST SEEN"}, rows, 2))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newHostCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "host <id>",
		Short: "Show one host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				resp, err := waitFor(ctx, rt.hooks.HostByID(args[0]))
				if err != nil {
					return fmt.Errorf("load host %s: %w", args[0], err)
				}
				if resp == nil {
					return fmt.Errorf("host %s not found", args[0])
				}
				h := resp.Payload()
				out := cmd.OutOrStdout()
				if output == outputJSON {
					return writeJSON(out, h)
				}
				fields := [][2]string{
					{"ID", h.ID},
					{"Name", h.Name},
					{"Type", string(h.Type)},
					{"Status", string(h.Status)},
					{"Address", h.PrimaryAddress()},
					{"CPU", percent(h.CPUUsage)},
					{"Memory", percent(h.MemoryUsage)},
					{"Last seen", formatTime(h.LastSeenAt)},
				}
				if h.Addresses != nil {
					fields = append(fields,
						[2]string{"Tailscale", h.Addresses.Tailscale},
						[2]string{"Public", h.Addresses.Public},
					)
				}
				renderFields(out, fields)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newWorkloadsCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "workloads",
		Short: "List inventory workloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				resp, err := waitFor(ctx, rt.hooks.Workloads())
				if err != nil {
					return fmt.Errorf("load workloads: %w", err)
				}
				workloads := resp.Payload()
				out := cmd.OutOrStdout()
				if output == outputJSON {
					return writeJSON(out, workloads)
				}
				rows := make([][]string, 0, len(workloads))
				for _, w := range workloads {
					rows = append(rows, []string{
						w.Name, orDash(w.Namespace), string(w.Type), string(w.Status),
						replicas(w.ReadyReplicas, w.Replicas), orDash(w.HealthStatus),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"NAME", "NAMESPACE", "TYPE", "STATUS", "READY", "HEALTH"}, rows, 3))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newWorkloadCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "workload <id>",
		Short: "Show one workload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				resp, err := waitFor(ctx, rt.hooks.WorkloadByID(args[0]))
				if err != nil {
					return fmt.Errorf("load workload %s: %w", args[0], err)
				}
				if resp == nil {
					return fmt.Errorf("workload %s not found", args[0])
				}
				w := resp.Payload()
				out := cmd.OutOrStdout()
				if output == outputJSON {
					return writeJSON(out, w)
				}
				renderFields(out, [][2]string{
					{"ID", w.ID},
					{"Name", w.Name},
					{"Namespace", w.Namespace},
					{"Type", string(w.Type)},
					{"Status", string(w.Status)},
					{"Health", w.HealthStatus},
					{"Ready", replicas(w.ReadyReplicas, w.Replicas)},
					{"Host", w.HostID},
					{"Updated", formatTime(w.LastUpdatedAt)},
				})
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newProxmoxCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "proxmox",
		Short: "Show Proxmox connectivity, nodes and guests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				out := cmd.OutOrStdout()

				status, err := waitFor(ctx, rt.hooks.ProxmoxStatus())
				connected := err == nil && status.Payload().Connected
				fmt.Fprintf(out, "Proxmox connected: %s\n", yesNo(connected))
				if err != nil {
					fmt.Fprintln(out, errStyle.Render(err.Error()))
				}

				nodes, err := waitFor(ctx, rt.hooks.ProxmoxNodes())
				if err != nil {
					return fmt.Errorf("load proxmox nodes: %w", err)
				}
				rows := make([][]string, 0, len(nodes.Payload()))
				for _, n := range nodes.Payload() {
					rows = append(rows, []string{n.Node, orDash(n.Status), strconv.Itoa(n.MaxCPU), uptime(n.Uptime)})
				}
				fmt.Fprintln(out, renderTable([]string{"NODE", "STATUS", "CPUS", "UPTIME"}, rows, 1))

				var guests [][]string
				for _, t := range []models.ProxmoxResourceType{models.ProxmoxResourceVM, models.ProxmoxResourceLXC} {
					resp, err := waitFor(ctx, rt.hooks.ProxmoxResources(t))
					if err != nil {
						return fmt.Errorf("load proxmox %s: %w", t, err)
					}
					for _, g := range resp.Payload() {
						name := g.Name
						if name == "" {
							name = g.ID
						}
						guests = append(guests, []string{name, string(t), orDash(g.Node), orDash(g.Status), uptime(g.Uptime)})
					}
				}
				fmt.Fprintln(out, renderTable([]string{"NAME", "TYPE", "NODE", "STATUS", "UPTIME"}, guests, 3))
				return nil
			})
		},
	}
}

func newArgoCDCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "argocd",
		Short: "Show ArgoCD connectivity and applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				out := cmd.OutOrStdout()

				status, err := waitFor(ctx, rt.hooks.ArgoCDStatus())
				connected := err == nil && status.Payload().Connected
				fmt.Fprintf(out, "ArgoCD connected: %s\n", yesNo(connected))
				if err != nil {
					fmt.Fprintln(out, errStyle.Render(err.Error()))
				}

				apps, err := waitFor(ctx, rt.hooks.ArgoCDApplications())
				if err != nil {
					return fmt.Errorf("load argocd applications: %w", err)
				}
				rows := make([][]string, 0, len(apps.Payload()))
				for _, a := range apps.Payload() {
					rows = append(rows, []string{a.Name, orDash(a.Namespace), orDash(a.SyncStatus), orDash(a.HealthStatus), orDash(a.Revision)})
				}
				fmt.Fprintln(out, renderTable([]string{"NAME", "NAMESPACE", "SYNC", "HEALTH", "REVISION"}, rows, -1))
				return nil
			})
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show backend readiness and liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				feed := inventory.NewStatusFeed(rt.hooks)
				defer feed.Close()
				if err := feed.Await(ctx); err != nil {
					return fmt.Errorf("load health: %w", err)
				}
				health := feed.Health()

				out := cmd.OutOrStdout()
				if output == outputJSON {
					return writeJSON(out, health)
				}
				fields := [][2]string{
					{"Backend", rt.client.BaseURL()},
					{"Ready", yesNo(health.Ready)},
					{"Live", yesNo(health.Live)},
				}
				if r := health.Report; r != nil {
					fields = append(fields,
						[2]string{"Status", r.Status},
						[2]string{"Database", yesNo(r.Database.Connected)},
						[2]string{"Uptime", time.Duration(r.Uptime * float64(time.Second)).Truncate(time.Second).String()},
						[2]string{"Version", r.Version},
					)
				}
				renderFields(out, fields)
				renderErrors(out, health.Errors)
				if !health.Ready || !health.Live {
					return errors.New("backend is not healthy")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Ask the backend to resync its inventory now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				trigger := inventorysync.New(rt.client,
					inventorysync.WithMessageTTL(rt.cfg.SyncMessageTTL),
					inventorysync.WithLogger(logging.New("sync")),
				)
				outcome, err := trigger.Sync(ctx)
				out := cmd.OutOrStdout()
				if err != nil {
					fmt.Fprintln(out, errStyle.Render(outcome.Text))
					return err
				}
				fmt.Fprintln(out, okStyle.Render(outcome.Text))
				return nil
			})
		},
	}
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func replicas(ready, desired *int) string {
	if desired == nil {
		return "-"
	}
	r := 0
	if ready != nil {
		r = *ready
	}
	return fmt.Sprintf("%d/%d", r, *desired)
}

func uptime(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
