package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyward/internal/domain"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage per-conversation sessions",
	}
	cmd.AddCommand(sessionEstablishCmd(), sessionDeleteCmd())
	return cmd
}

// session establish <conversation> <peer>: derive the shared secret with <peer>.
func sessionEstablishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "establish <conversation> <peer>",
		Short: "Derive and store the shared secret for a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			conv, peer := domain.ConversationID(args[0]), domain.UserID(args[1])
			if err := wire.Sessions.EstablishSession(cmd.Context(), user, conv, peer); err != nil {
				return err
			}
			fmt.Printf("Session established for %s with %s.\n", conv, peer)
			return nil
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation>",
		Short: "Remove a conversation's session key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.Sessions.DeleteSession(domain.ConversationID(args[0])); err != nil {
				return err
			}
			fmt.Println("Session deleted.")
			return nil
		},
	}
}
