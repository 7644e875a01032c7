package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rcourtman/mission-control/internal/inventory"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live unified table; Enter revalidates, r forces a refetch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ff.filter()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := newRuntime(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr := opts.cfg.MetricsAddr; addr != "" {
				go func() {
					if err := serveMetrics(ctx, addr); err != nil {
						log.Warn().Err(err).Msg("Metrics server stopped")
					}
				}()
			}

			feed := inventory.NewResourceFeed(rt.hooks)
			defer feed.Close()

			w := &watcher{
				out:    cmd.OutOrStdout(),
				clear:  isTerminal(cmd.OutOrStdout()),
				filter: filter,
				view:   feed.View,
			}
			go readKeys(ctx, cmd.InOrStdin(), keyActions{
				focus:   rt.cache.Focus,
				refresh: feed.Refresh,
				quit:    cancel,
			})

			return w.run(ctx, feed.Updates())
		},
	}
	ff.register(cmd)
	return cmd
}

// watcher redraws the unified table whenever the feed signals.
type watcher struct {
	out    io.Writer
	clear  bool
	filter unifiedresources.Filter
	view   func() unifiedresources.View
}

func (w *watcher) run(ctx context.Context, updates <-chan struct{}) error {
	w.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates:
			w.draw()
		}
	}
}

func (w *watcher) draw() {
	if w.clear {
		fmt.Fprint(w.out, clearScreen)
	}
	fmt.Fprintln(w.out, headerStyle.Render("Mission Control")+dimStyle.Render("  "+time.Now().Format("15:04:05")))
	renderView(w.out, w.view().Filtered(w.filter))
	fmt.Fprintln(w.out, dimStyle.Render("Enter: revalidate  r: refetch  q: quit"))
}

type keyActions struct {
	focus   func()
	refresh func()
	quit    func()
}

// readKeys maps input lines to actions until EOF or ctx ends.
func readKeys(ctx context.Context, in io.Reader, actions keyActions) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
			log.Debug().Msg("Focus revalidation requested")
			actions.focus()
		case "r":
			log.Debug().Msg("Forced refetch requested")
			actions.refresh()
		case "q":
			actions.quit()
			return
		}
	}
}
