package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hostvirt/internal/storage"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Manage storage volumes",
	Long:  `Create, delete and list volumes in a host's storage pools.`,
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect storage pools",
}

var volumeFormat string

var volumeCreateCmd = &cobra.Command{
	Use:   "create <pool> <name> <size-gb>",
	Short: "Create a volume",
	Long: `Create a volume of the given capacity in GB. Nothing is allocated up
front; the format defaults to qcow2.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeGB, err := parseGB(args[2])
		if err != nil {
			return err
		}

		pool, err := current.host().OpenPool(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()

		vol, err := pool.CreateVolume(cmd.Context(), args[1], sizeGB, storage.VolumeFormat(volumeFormat))
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatVolumes([]storage.VolumeInfo{*vol}))
	},
}

var volumeDeleteCmd = &cobra.Command{
	Use:   "delete <pool> <name>",
	Short: "Delete a volume",
	Long:  `Delete a volume. Deleting a volume that does not exist succeeds.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := current.host().OpenPool(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()

		ok, err := pool.DeleteVolume(cmd.Context(), args[1])
		return transitionResult(cmd, ok, err)
	},
}

var volumeListCmd = &cobra.Command{
	Use:   "list <pool>",
	Short: "List volumes in a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := current.host().OpenPool(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()

		vols, err := pool.ListVolumes(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatVolumes(vols))
	},
}

var poolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List storage pools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pools, err := current.host().ListStoragePools(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatPools(pools))
	},
}

var poolInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show one storage pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := current.host().PoolInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(cmd)(current.out.FormatPools([]storage.PoolInfo{*info}))
	},
}

var poolRefreshCmd = &cobra.Command{
	Use:   "refresh <name>",
	Short: "Rescan a pool's volumes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := current.host().OpenPool(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = pool.Close() }()

		if err := pool.Refresh(cmd.Context()); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return err
	},
}

func init() {
	volumeCreateCmd.Flags().StringVar(&volumeFormat, "format", string(storage.DefaultVolumeFormat), "volume format: qcow2 or raw")

	volumeCmd.AddCommand(volumeCreateCmd)
	volumeCmd.AddCommand(volumeDeleteCmd)
	volumeCmd.AddCommand(volumeListCmd)

	poolCmd.AddCommand(poolListCmd)
	poolCmd.AddCommand(poolInfoCmd)
	poolCmd.AddCommand(poolRefreshCmd)
}
