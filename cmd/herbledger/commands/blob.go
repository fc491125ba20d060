package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"herbledger/internal/blob"
)

func newBlobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Manage content-addressed attachments",
		Long:  "Stores and retrieves batch attachments (photos, lab reports, certificates) in the blob store selected by HERBLEDGER_BLOB_DRIVER. The printed reference is the content hash to pass as --content-ref or --lab-report.",
	}
	cmd.AddCommand(newBlobPutCommand())
	cmd.AddCommand(newBlobGetCommand())
	cmd.AddCommand(newBlobStatCommand())
	cmd.AddCommand(newBlobListCommand())
	return cmd
}

func newBlobPutCommand() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file and print its content reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := blob.Open(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := store.Store(cmd.Context(), f, blob.PutOptions{ContentType: contentType})
			if err != nil {
				return err
			}
			cmd.Println(info.Ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type of the file")
	return cmd
}

func newBlobGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Write a stored blob to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := blob.Open(cmd.Context())
			if err != nil {
				return err
			}
			_, rc, err := store.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}

func newBlobStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <ref>",
		Short: "Print metadata for a stored blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := blob.Open(cmd.Context())
			if err != nil {
				return err
			}
			info, err := store.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

func newBlobListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored blob references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := blob.Open(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, infos)
		},
	}
}
