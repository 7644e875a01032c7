package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcourtman/mission-control/internal/apiclient"
	"github.com/rcourtman/mission-control/internal/config"
	"github.com/rcourtman/mission-control/internal/inventory"
	"github.com/rcourtman/mission-control/internal/logging"
	"github.com/rcourtman/mission-control/internal/metrics"
	"github.com/rcourtman/mission-control/internal/swr"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// defaultWaitTimeout bounds one-shot commands waiting for their first fetch.
const defaultWaitTimeout = 30 * time.Second

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	envFile   string
	apiURL    string
	token     string
	logLevel  string
	logFormat string
	timeout   time.Duration

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mission-control",
		Short:         "Mission Control - unified homelab inventory",
		Long:          `Mission Control shows Kubernetes, Proxmox and ArgoCD resources from the inventory backend as one list`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "env file to load (default $MC_ENV_FILE or .env)")
	flags.StringVar(&opts.apiURL, "api-url", "", "backend API base URL (overrides MC_API_URL)")
	flags.StringVar(&opts.token, "token", "", "bearer token (overrides MC_API_TOKEN)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: json, console, auto")
	flags.DurationVar(&opts.timeout, "wait", defaultWaitTimeout, "how long one-shot commands wait for the backend")

	cmd.AddCommand(
		newVersionCmd(),
		newResourcesCmd(opts),
		newHostsCmd(opts),
		newHostCmd(opts),
		newWorkloadsCmd(opts),
		newWorkloadCmd(opts),
		newProxmoxCmd(opts),
		newArgoCDCmd(opts),
		newHealthCmd(opts),
		newSyncCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mission Control %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(out, "Commit: %s\n", GitCommit)
			}
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads configuration, applies flag overrides and initializes logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := os.Setenv("MC_ENV_FILE", o.envFile); err != nil {
			return fmt.Errorf("set env file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cmd.Flags().Changed("api-url") {
		cfg.APIURL = o.apiURL
	}
	if cmd.Flags().Changed("token") {
		cfg.APIToken = o.token
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "mission-control",
		Output:    cmd.ErrOrStderr(),
	})
	o.cfg = cfg
	return nil
}

// runtime is the client, cache and hooks a command works against.
type runtime struct {
	cfg    *config.Config
	client *apiclient.Client
	cache  *swr.Cache
	hooks  *inventory.Hooks
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	client, err := apiclient.New(apiclient.Config{
		BaseURL:            cfg.APIURL,
		Token:              cfg.APIToken,
		AccessClientID:     cfg.AccessClientID,
		AccessClientSecret: cfg.AccessClientSecret,
		Timeout:            cfg.HTTPTimeout,
		DNSCacheTTL:        cfg.DNSCacheTTL,
		Logger:             logging.New("apiclient"),
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	cache := swr.NewCache(ctx,
		swr.WithLogger(logging.New("swr")),
		swr.WithIdleRetention(cfg.CacheRetention),
	)
	cache.SetMetricHooks(swr.MetricHooks{
		OnFetch:          metrics.RecordFetch,
		OnStaleDiscarded: metrics.RecordStaleDiscarded,
		OnEntries:        metrics.SetCacheEntries,
	})

	hooks := inventory.NewHooks(client, cache, inventory.Intervals{
		Inventory: cfg.InventoryRefresh,
		Status:    cfg.StatusRefresh,
		ArgoCD:    cfg.ArgoCDRefresh,
		Dedupe:    cfg.DedupeInterval,
	})

	return &runtime{cfg: cfg, client: client, cache: cache, hooks: hooks}, nil
}

func (rt *runtime) Close() {
	rt.cache.Close()
	rt.client.Close()
}

// oneShot runs fn against a fresh runtime bounded by the --wait timeout.
func (o *rootOptions) oneShot(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	rt, err := newRuntime(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt)
}
