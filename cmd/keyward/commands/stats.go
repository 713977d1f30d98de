package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyward/internal/backup"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print local key store record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := wire.Sessions.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("identities: %d\nsessions:   %d\ndevices:    %d\n",
				stats.Identities, stats.Sessions, stats.Devices)
			return nil
		},
	}
}

// recovery-phrase: generate a mnemonic to use as the backup passphrase.
func recoveryPhraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recovery-phrase",
		Short: "Generate a 12-word recovery phrase for backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase, err := backup.GenerateRecoveryPhrase()
			if err != nil {
				return err
			}
			fmt.Println(phrase)
			fmt.Fprintln(cmd.ErrOrStderr(), "Store this phrase safely; it opens your key backup.")
			return nil
		},
	}
}
