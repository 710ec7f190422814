package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/fleet"
	hostlibvirt "github.com/jbweber/hostvirt/internal/libvirt"
	"github.com/jbweber/hostvirt/internal/naming"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/vm"
)

func addDomainCommands(root *cobra.Command) {
	root.AddCommand(statusCmd)
	root.AddCommand(lifecycleCmd("start", "Start a domain", (*vm.Domain).Start))
	root.AddCommand(lifecycleCmd("shutdown", "Ask a domain to shut down", (*vm.Domain).Shutdown))
	root.AddCommand(lifecycleCmd("poweroff", "Force a domain off", (*vm.Domain).Poweroff))
	root.AddCommand(lifecycleCmd("reboot", "Reboot a running domain", (*vm.Domain).Reboot))
	root.AddCommand(lifecycleCmd("undefine", "Remove a domain definition", (*vm.Domain).Undefine))
	root.AddCommand(defineCmd)
	root.AddCommand(xmlCmd)
	root.AddCommand(deviceCmd("attach", "Attach a device to the persistent definition", (*vm.Domain).AttachDevice))
	root.AddCommand(deviceCmd("detach", "Detach a device from the persistent definition", (*vm.Domain).DetachDevice))
	root.AddCommand(disksCmd)
	root.AddCommand(attachVolumeCmd)
	root.AddCommand(attachFileCmd)
	root.AddCommand(resizeCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <uuid>",
	Short: "Show a domain's state",
	Long: `Show a domain's state. An unreachable host reports "host connect failed"
and an unknown domain reports "miss"; neither is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, label, err := current.vms.Status(cmd.Context(), hostAddr, args[0])
		if err != nil {
			return err
		}
		res := fleet.Result{
			Target:     fleet.Target{Host: hostAddr, UUID: args[0]},
			State:      state,
			StateLabel: label,
		}
		return render(cmd)(current.out.FormatStatuses([]fleet.Result{res}))
	},
}

func lifecycleCmd(use, short string, fn func(*vm.Domain, context.Context) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <uuid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := fn(current.vms.Domain(hostAddr, args[0]), cmd.Context())
			return transitionResult(cmd, ok, err)
		},
	}
}

func deviceCmd(use, short string, fn func(*vm.Domain, context.Context, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <uuid> <device.xml>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read device descriptor: %w", err)
			}
			ok, err := fn(current.vms.Domain(hostAddr, args[0]), cmd.Context(), string(data))
			return transitionResult(cmd, ok, err)
		},
	}
}

var defineCmd = &cobra.Command{
	Use:   "define <domain.xml>",
	Short: "Define a persistent domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read domain descriptor: %w", err)
		}
		id, err := current.vms.Define(cmd.Context(), hostAddr, string(data))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
		return err
	},
}

var xmlCmd = &cobra.Command{
	Use:   "xml <uuid>",
	Short: "Print a domain's descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := current.vms.Domain(hostAddr, args[0]).XMLDesc(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), x)
		return err
	},
}

var disksNext bool

var disksCmd = &cobra.Command{
	Use:   "disks <uuid>",
	Short: "List a domain's disk targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := current.vms.Domain(hostAddr, args[0])
		if disksNext {
			dev, ok, err := d.NextDiskTarget(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no free disk target left")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dev)
			return err
		}

		sources, targets, err := d.DiskTargets(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if !noHeaders {
			_, _ = fmt.Fprintln(w, "TARGET\tSOURCE")
		}
		for i := range targets {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", targets[i], sources[i])
		}
		return w.Flush()
	},
}

var (
	attachPool   string
	attachSizeGB uint64
)

var attachVolumeCmd = &cobra.Command{
	Use:   "attach-volume <uuid>",
	Short: "Create a data volume and attach it at the next free target",
	Long: `Create a data volume named <uuid>_data-<target>.qcow2 in the pool and attach
it to the domain's persistent definition at the next free vdX target.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d := current.vms.Domain(hostAddr, args[0])

		dev, ok, err := d.NextDiskTarget(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no free disk target left")
		}

		pool, err := current.host().OpenPool(ctx, attachPool)
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()

		name := naming.VolumeNameData(d.UUID(), dev)
		if err := attachDataVolume(ctx, d, pool, attachPool, name, dev, attachSizeGB, current.logger); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dev, name)
		return err
	},
}

type deviceAttacher interface {
	AttachDevice(ctx context.Context, xml string) (bool, error)
}

type volumeStore interface {
	CreateVolume(ctx context.Context, name string, capacityGB uint64, format storage.VolumeFormat) (*storage.VolumeInfo, error)
	DeleteVolume(ctx context.Context, name string) (bool, error)
}

// attachDataVolume creates volume name in pool and attaches it at dev. The
// volume is deleted again if it could not be attached.
func attachDataVolume(ctx context.Context, d deviceAttacher, pool volumeStore, poolName, name, dev string, sizeGB uint64, log *zap.Logger) (err error) {
	if _, err := pool.CreateVolume(ctx, name, sizeGB, storage.DefaultVolumeFormat); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if _, cerr := pool.DeleteVolume(ctx, name); cerr != nil {
			log.Warn("failed to remove unattached volume",
				zap.String("pool", poolName),
				zap.String("volume", name),
				zap.Error(cerr))
		}
	}()

	diskXML, err := hostlibvirt.VolumeDiskXML(poolName, name, dev)
	if err != nil {
		return err
	}
	attached, err := d.AttachDevice(ctx, diskXML)
	if err != nil {
		return err
	}
	if !attached {
		return errDeclined
	}
	return nil
}

var attachFileFormat string

var attachFileCmd = &cobra.Command{
	Use:   "attach-file <uuid> <path>",
	Short: "Attach an existing image file at the next free target",
	Long: `Attach an image that already exists on the hypervisor host to the domain's
persistent definition at the next free vdX target.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d := current.vms.Domain(hostAddr, args[0])

		dev, ok, err := d.NextDiskTarget(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no free disk target left")
		}

		diskXML, err := hostlibvirt.FileDiskXML(args[1], attachFileFormat, dev)
		if err != nil {
			return err
		}
		attached, err := d.AttachDevice(ctx, diskXML)
		if err != nil {
			return err
		}
		if !attached {
			return errDeclined
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dev, args[1])
		return err
	},
}

var (
	resizeVCPUs     uint
	resizeMemoryMiB uint
)

var resizeCmd = &cobra.Command{
	Use:   "resize <uuid>",
	Short: "Change vCPUs or memory of a shut off domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resizeVCPUs == 0 && resizeMemoryMiB == 0 {
			return fmt.Errorf("nothing to change: set --vcpus or --memory-mib")
		}
		d := current.vms.Domain(hostAddr, args[0])
		if resizeVCPUs > 0 {
			ok, err := d.SetVCPUs(cmd.Context(), resizeVCPUs)
			if err != nil || !ok {
				return transitionResult(cmd, ok, err)
			}
		}
		if resizeMemoryMiB > 0 {
			ok, err := d.SetMemoryMiB(cmd.Context(), resizeMemoryMiB)
			if err != nil || !ok {
				return transitionResult(cmd, ok, err)
			}
		}
		return transitionResult(cmd, true, nil)
	},
}

// parseGB parses a positive gigabyte count.
func parseGB(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid size %q: must be a positive number of GB", s)
	}
	return n, nil
}

func init() {
	disksCmd.Flags().BoolVar(&disksNext, "next", false, "print the next free disk target instead")

	attachVolumeCmd.Flags().StringVar(&attachPool, "pool", "", "storage pool for the new volume")
	attachVolumeCmd.Flags().Uint64Var(&attachSizeGB, "size", 10, "volume capacity in GB")
	_ = attachVolumeCmd.MarkFlagRequired("pool")
	attachFileCmd.Flags().StringVar(&attachFileFormat, "format", "qcow2", "image format: qcow2 or raw")

	resizeCmd.Flags().UintVar(&resizeVCPUs, "vcpus", 0, "new vCPU count")
	resizeCmd.Flags().UintVar(&resizeMemoryMiB, "memory-mib", 0, "new memory size in MiB")
}
