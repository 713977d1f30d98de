package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"keyward/internal/domain"
)

func attachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Encrypt and transfer file attachments",
	}
	cmd.AddCommand(attachUploadCmd(), attachDownloadCmd())
	return cmd
}

// attach upload <conversation> <file>: encrypt and upload, printing the
// metadata the recipient needs to download.
func attachUploadCmd() *cobra.Command {
	var metaPath string
	cmd := &cobra.Command{
		Use:   "upload <conversation> <file>",
		Short: "Encrypt a file and upload it for a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			meta, err := wire.Attachments.Upload(cmd.Context(), domain.ConversationID(args[0]), filepath.Base(args[1]), data)
			if err != nil {
				return err
			}

			out := os.Stdout
			if metaPath != "" {
				f, err := os.Create(metaPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(meta); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Uploaded %s (%d bytes).\n", meta.Name, meta.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&metaPath, "meta", "m", "", "write attachment metadata JSON to this file")
	return cmd
}

// attach download <meta.json>: fetch, decrypt and write the file.
func attachDownloadCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download <meta.json>",
		Short: "Download and decrypt an attachment from its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var meta domain.AttachmentMeta
			if err := json.Unmarshal(raw, &meta); err != nil {
				return fmt.Errorf("parse attachment metadata: %w", err)
			}
			data, err := wire.Attachments.Download(cmd.Context(), meta)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = meta.Name
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%d bytes).\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: attachment name)")
	return cmd
}
