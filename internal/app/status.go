package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/assapir/alma/internal/device"
	"github.com/assapir/alma/internal/system"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "status",
		Short:                 "Show host and storage overview",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sysMonitor := system.NewSystemMonitor(registry())

			fmt.Fprintln(out, "Alma Status")
			fmt.Fprintln(out, "===========")

			fmt.Fprintln(out, "\nSystem Information:")
			if info, err := sysMonitor.GetHostInfo(); err == nil {
				fmt.Fprintf(out, "  Hostname: %s\n", info.Hostname)
				fmt.Fprintf(out, "  OS: %s (%s)\n", info.OS, info.Platform)
				fmt.Fprintf(out, "  Kernel: %s\n", info.Kernel)
				fmt.Fprintf(out, "  Uptime: %s\n", time.Duration(info.Uptime)*time.Second)
			} else {
				fmt.Fprintln(out, "  Not Available")
			}

			fmt.Fprintln(out, "\nStorage:")
			if rootDisk, err := sysMonitor.RootDisk(); err == nil && rootDisk != "" {
				fmt.Fprintf(out, "  System disk: %s\n", rootDisk)
			} else {
				fmt.Fprintln(out, "  System disk: Unknown")
			}

			removable, err := device.Enumerate(registry(), false)
			if err != nil {
				return err
			}
			all, err := device.Enumerate(registry(), true)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  Removable devices: %d\n", len(removable))
			fmt.Fprintf(out, "  All devices: %d\n", len(all))
			return nil
		},
	}
}
