package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/loader"
	"github.com/jbweber/hostvirt/internal/metrics"
	"github.com/jbweber/hostvirt/internal/vm"
	"github.com/jbweber/hostvirt/internal/worker"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Operate on many domains at once",
}

// newRunner builds a fleet runner on a fresh worker pool. The caller shuts the
// pool down.
func newRunner() (*fleet.Runner, *worker.Pool, error) {
	pool, err := worker.NewPool(current.cfg.Worker.PoolSize, current.logger)
	if err != nil {
		return nil, nil, err
	}
	return fleet.NewRunner(current.vms, pool, current.logger), pool, nil
}

var fleetStatusCmd = &cobra.Command{
	Use:   "status <targets.yaml>",
	Short: "Show the state of every domain in a target list",
	Long: `Query every (host, uuid) target in the list concurrently and print one row
per target in list order. Targets whose query failed are reported in the
ERROR column and make the command exit non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := loader.LoadTargets(args[0])
		if err != nil {
			return err
		}

		runner, pool, err := newRunner()
		if err != nil {
			return err
		}
		defer pool.Shutdown()

		results, statusErr := runner.Statuses(cmd.Context(), targets)
		if err := render(cmd)(current.out.FormatStatuses(results)); err != nil {
			return err
		}
		return statusErr
	},
}

var fleetDiscoverCmd = &cobra.Command{
	Use:   "discover <targets.yaml>",
	Short: "Write a target list of every domain on --host",
	Long: `List the domains defined on --host and write them to a target list that
fleet status and watch can read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domains, err := current.host().ListDomains(cmd.Context())
		if err != nil {
			return err
		}
		if len(domains) == 0 {
			return fmt.Errorf("no domains defined on %q", hostAddr)
		}

		targets := discoveredTargets(hostAddr, domains)
		if err := loader.SaveTargets(targets, args[0]); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d targets to %s\n", len(targets), args[0])
		return err
	},
}

// discoveredTargets turns a host's domain list into fleet targets.
func discoveredTargets(host string, domains []vm.Info) []fleet.Target {
	targets := make([]fleet.Target, 0, len(domains))
	for _, d := range domains {
		targets = append(targets, fleet.Target{Host: host, UUID: d.UUID, Name: d.Name})
	}
	return targets
}

var (
	watchInterval    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch <targets.yaml>",
	Short: "Poll a target list and export metrics",
	Long: `Poll every target in the list at a fixed interval, logging state changes
and serving Prometheus metrics on --metrics-addr (or metrics.addr from the
config). Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := loader.LoadTargets(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := watchMetricsAddr
		if addr == "" {
			addr = current.cfg.Metrics.Addr
		}
		if addr != "" {
			srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					current.logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			current.logger.Info("serving metrics", zap.String("addr", addr))
		}

		runner, pool, err := newRunner()
		if err != nil {
			return err
		}
		defer pool.Shutdown()

		last := make(map[fleet.Target]string, len(targets))
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			results, err := runner.Statuses(ctx, targets)
			if err != nil && ctx.Err() == nil {
				current.logger.Warn("fleet status had failures", zap.Error(err))
			}
			for _, r := range results {
				if r.StateLabel != "" && last[r.Target] != r.StateLabel {
					current.logger.Info("state changed",
						zap.String("host", r.Host),
						zap.String("uuid", r.UUID),
						zap.String("from", last[r.Target]),
						zap.String("to", r.StateLabel),
					)
					last[r.Target] = r.StateLabel
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "poll interval")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "address for the /metrics endpoint")

	fleetCmd.AddCommand(fleetStatusCmd)
	fleetCmd.AddCommand(fleetDiscoverCmd)
}
