package commands

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate or restore identity keys and publish the public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			id, err := wire.Sessions.Initialize(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Printf("Identity ready for %s.\nPublic key: %s\n", id.UserID, base58.Encode(id.PublicKey.Slice()))
			return nil
		},
	}
}
