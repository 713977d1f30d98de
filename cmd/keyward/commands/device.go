package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage registered devices",
	}
	cmd.AddCommand(deviceRegisterCmd(), deviceListCmd())
	return cmd
}

func deviceRegisterCmd() *cobra.Command {
	var primary bool
	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register this device under your identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			dev, err := wire.Pairing.RegisterDevice(cmd.Context(), user, args[0], primary)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %q as %s.\n", dev.DeviceName, dev.DeviceID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&primary, "primary", false, "mark this device as the primary device")
	return cmd
}

func deviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List devices registered under your identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			devices, err := wire.Keys.ListDevices(user)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("No devices registered.")
				return nil
			}
			for _, d := range devices {
				role := ""
				if d.IsPrimary {
					role = " (primary)"
				}
				fmt.Printf("%s  %s%s  added %s\n", d.DeviceID, d.DeviceName, role, d.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
