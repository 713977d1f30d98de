package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"keyward/internal/domain"
)

func messageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Encrypt and decrypt conversation messages",
	}
	cmd.AddCommand(messageEncryptCmd(), messageDecryptCmd())
	return cmd
}

// message encrypt <conversation> <text>: print the sealed message as JSON.
func messageEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <conversation> <text>",
		Short: "Encrypt a message under the conversation's session key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := wire.Sessions.EncryptMessage(domain.ConversationID(args[0]), []byte(args[1]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(msg)
		},
	}
}

// message decrypt <conversation>: read the sealed message JSON from stdin.
func messageDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <conversation>",
		Short: "Decrypt a sealed message read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			var msg domain.EncryptedMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				return fmt.Errorf("parse sealed message: %w", err)
			}
			plaintext, err := wire.Sessions.DecryptMessage(domain.ConversationID(args[0]), msg)
			if err != nil {
				return err
			}
			fmt.Println(string(plaintext))
			return nil
		},
	}
}
