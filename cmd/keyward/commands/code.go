package commands

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"keyward/internal/domain"
)

// code <peer>: print the security code shared with <peer>.
func codeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code <peer>",
		Short: "Print the security code to compare with a peer out of band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			code, err := wire.Sessions.SecurityCode(cmd.Context(), user, domain.UserID(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print your published identity public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			pub, err := wire.Sessions.FetchPublicKey(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Println(base58.Encode(pub.Slice()))
			return nil
		},
	}
}
