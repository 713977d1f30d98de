package commands

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
)

func pairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair a new device with your identity",
	}
	cmd.AddCommand(pairCreateCmd(), pairVerifyCmd(), pairCleanupCmd())
	return cmd
}

// pair create: publish an encrypted pairing record and print the code.
func pairCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a short-lived pairing code for a new device",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			code, expiresAt, err := wire.Pairing.CreatePairingRequest(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Printf("Pairing code: %s\n", code)
			fmt.Printf("Enter it on the new device before %s. The code works once.\n", expiresAt.Format("15:04:05"))
			return nil
		},
	}
}

// pair verify <code>: recover the identity keys on the new device.
func pairVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Redeem a pairing code on this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			id, err := wire.Pairing.VerifyPairingCode(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Device paired as %s.\nPublic key: %s\n", id.UserID, base58.Encode(id.PublicKey.Slice()))
			return nil
		},
	}
}

func pairCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove your expired pairing records from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			n, err := wire.Pairing.CleanupExpired(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired record(s).\n", n)
			return nil
		},
	}
}
