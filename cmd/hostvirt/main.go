package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/config"
	"github.com/jbweber/hostvirt/internal/host"
	hostlibvirt "github.com/jbweber/hostvirt/internal/libvirt"
	"github.com/jbweber/hostvirt/internal/logger"
	"github.com/jbweber/hostvirt/internal/output"
	"github.com/jbweber/hostvirt/internal/vm"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errDeclined marks a transition the hypervisor refused without failing.
var errDeclined = errors.New("declined")

// Exit codes.
const (
	exitError    = 1
	exitDeclined = 2
)

// Global flags.
var (
	configPath   string
	hostAddr     string
	outputFormat string
	noHeaders    bool
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	connector *hostlibvirt.Connector
	vms       *vm.Manager
	out       output.Formatter
}

var current *app

func main() {
	err := rootCmd.Execute()
	if current != nil {
		_ = current.logger.Sync()
	}
	switch {
	case err == nil:
	case errors.Is(err, errDeclined):
		fmt.Fprintln(os.Stderr, "declined")
		os.Exit(exitDeclined)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hostvirt",
	Short: "hostvirt - libvirt hypervisor control",
	Long: `hostvirt drives domains, devices and storage volumes on libvirt hosts.

Every command opens a fresh connection to the target host, local or over an
ssh tunnel, and closes it when done. Lifecycle commands are idempotent:
starting a running domain or undefining an absent one succeeds without
touching the hypervisor.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./hostvirt.yaml or /etc/hostvirt/hostvirt.yaml)")
	rootCmd.PersistentFlags().StringVarP(&hostAddr, "host", "H", "", "hypervisor host IPv4 address (empty for local)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "output format: table, yaml, json")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(listCmd)
	addDomainCommands(rootCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(fleetCmd)
	rootCmd.AddCommand(watchCmd)
}

func newApp() (*app, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	out, err := output.NewFormatter(output.Options{Format: output.Format(outputFormat), NoHeaders: noHeaders})
	if err != nil {
		return nil, err
	}

	prober := hostlibvirt.NewProber(cfg.Probe.Attempts, cfg.Probe.Timeout, cfg.Probe.Interval, log)
	connector := hostlibvirt.NewConnector(cfg.ConnectorConfig(), prober, log)

	return &app{
		cfg:       cfg,
		logger:    log,
		connector: connector,
		vms:       vm.NewManager(connector, log),
		out:       out,
	}, nil
}

func (a *app) host() *host.Host {
	return host.New(hostAddr, a.connector, a.logger)
}

// render returns a writer of formatted output to the command's stdout,
// shaped to take a Formatter result directly.
func render(cmd *cobra.Command) func(string, error) error {
	return func(s string, err error) error {
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), s)
		return err
	}
}

// transitionResult reports a boolean lifecycle result.
func transitionResult(cmd *cobra.Command, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errDeclined
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return err
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test libvirt connectivity",
	Long:  `Connect to the host's libvirt daemon and display its hostname, version and URI.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := current.host().Ping(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatPing(info))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List domains on the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		domains, err := current.host().ListDomains(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatDomains(domains))
	},
}
