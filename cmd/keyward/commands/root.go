package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"keyward/internal/app"
	"keyward/internal/backup"
	"keyward/internal/domain"
)

var (
	home           string
	userID         string
	serverURL      string
	backupPassword string
	verbose        bool

	wire *app.Wire
)

// Execute runs the keyward CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "keyward",
		Short:         "End-to-end encryption key management CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".keyward")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			var passwords domain.PasswordSupplier
			if backupPassword != "" {
				passwords = backup.NewStaticPassword(backupPassword)
			} else {
				passwords = backup.NewTerminalPassword(os.Stdin, os.Stderr)
			}

			var err error
			wire, err = app.NewWire(app.Config{
				Home:      home,
				ServerURL: serverURL,
				Passwords: passwords,
				Log:       log,
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "key store dir (default ~/.keyward)")
	root.PersistentFlags().StringVarP(&userID, "user", "u", "", "your user ID")
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8470", "keywardd base URL")
	root.PersistentFlags().StringVar(&backupPassword, "backup-password", "", "backup passphrase (prompted when empty)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		initCmd(),
		codeCmd(),
		fingerprintCmd(),
		sessionCmd(),
		messageCmd(),
		pairCmd(),
		deviceCmd(),
		attachCmd(),
		statsCmd(),
		recoveryPhraseCmd(),
	)
	return root.Execute()
}

// requireUser guards commands that act on behalf of a user.
func requireUser() (domain.UserID, error) {
	if userID == "" {
		return "", fmt.Errorf("user required (-u)")
	}
	return domain.UserID(userID), nil
}
