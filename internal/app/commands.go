package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assapir/alma/internal/config"
	"github.com/assapir/alma/internal/device"
	"github.com/assapir/alma/internal/platform"
	"github.com/assapir/alma/internal/storage"
	"github.com/assapir/alma/internal/system"
)

func registry() platform.Registry {
	return platform.NewRegistry(config.GetConfig().RegistryRoot)
}

func newValidator() (*storage.Validator, error) {
	cfg := config.GetConfig()
	mounts, err := platform.NewMountTable(cfg.MountSource, cfg.MountsFile)
	if err != nil {
		return nil, err
	}
	return storage.NewValidator(
		storage.WithRegistry(registry()),
		storage.WithMountTable(mounts),
		storage.WithDevDir(cfg.DevDir),
	), nil
}

func addAllFlag(cmd *cobra.Command, all *bool) {
	cmd.Flags().BoolVarP(all, "all", "a", false, "Also accept non-removable devices")
}

func allowNonRemovable(all bool) bool {
	return all || config.GetConfig().AllowNonRemovable
}

func NewDevicesCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List candidate storage devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := device.Enumerate(registry(), allowNonRemovable(all))
			if err != nil {
				return err
			}

			rootDisk, _ := system.NewSystemMonitor(registry()).RootDisk()

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No storage devices found")
				return nil
			}
			for _, dev := range devices {
				tag := ""
				if dev.Name == rootDisk {
					tag = " [system]"
				}
				fmt.Fprintf(out, "%s: %s%s\n", dev.Name, dev, tag)
			}
			return nil
		},
	}
	addAllFlag(cmd, &all)
	return cmd
}

func NewCheckCommand() *cobra.Command {
	var (
		all       bool
		partition uint8
	)
	cmd := &cobra.Command{
		Use:   "check [device-path]",
		Short: "Validate a device as a safe write target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, err := newValidator()
			if err != nil {
				return err
			}
			dev, err := validator.Validate(args[0], allowNonRemovable(all))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Device: %s\n", dev.Name())
			fmt.Fprintf(out, "Path: %s\n", dev.Path())
			if info, ok, err := device.Lookup(registry(), dev.Name()); err == nil && ok {
				fmt.Fprintf(out, "Model: %s\n", info)
			}
			fmt.Fprintf(out, "Removable: %t\n", dev.Removable())
			fmt.Fprintf(out, "Loop: %t\n", dev.Loop())

			mounts := dev.MountConfig()
			if len(mounts) == 0 {
				fmt.Fprintln(out, "Mounts: (not mounted)")
			} else {
				fmt.Fprintln(out, "Mounts:")
				for _, mount := range mounts {
					fmt.Fprintf(out, "  - %s\n", mount.MountPoint)
				}
			}

			if partition > 0 {
				part, err := dev.Partition(partition)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Partition %d: %s\n", part.Index(), part.Path())
			}
			return nil
		},
	}
	addAllFlag(cmd, &all)
	cmd.Flags().Uint8VarP(&partition, "partition", "p", 0, "Resolve the given 1-based partition")
	return cmd
}

func NewUnmountCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unmount [device-path]",
		Short: "Unmount a validated device and all of its partitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, err := newValidator()
			if err != nil {
				return err
			}
			dev, err := validator.Validate(args[0], allowNonRemovable(all))
			if err != nil {
				return err
			}

			mounts := dev.MountConfig()
			dev.UnmountIfNeeded()
			fmt.Fprintf(cmd.OutOrStdout(), "Unmounted %d mount point(s) of %s\n", len(mounts), dev.Path())
			return nil
		},
	}
	addAllFlag(cmd, &all)
	return cmd
}

func NewConfigCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the alma configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := *configPath
				if path == "" {
					path = config.ConfigFile
				}
				if err := config.SaveConfig(config.Default(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.GetConfig()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Registry: %s\n", cfg.RegistryRoot)
				fmt.Fprintf(out, "Mount table: %s (%s)\n", cfg.MountsFile, cfg.MountSource)
				fmt.Fprintf(out, "Device dir: %s\n", cfg.DevDir)
				fmt.Fprintf(out, "Allow non-removable: %t\n", cfg.AllowNonRemovable)
				fmt.Fprintf(out, "Log level: %s\n", cfg.Logs.Level)
				return nil
			},
		},
	)

	return cmd
}
