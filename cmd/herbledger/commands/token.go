package commands

import (
	"time"

	"github.com/spf13/cobra"

	"herbledger/internal/token"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect verification tokens",
	}
	cmd.AddCommand(newTokenIssueCommand())
	cmd.AddCommand(newTokenDecodeCommand())
	return cmd
}

func newTokenIssueCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue <batch-id>",
		Short: "Issue a token bound to the batch's current integrity hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batch, err := svc.ReadBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			codec := token.NewCodec(token.WithTTL(ttl))
			tok, err := codec.Issue(batch)
			if err != nil {
				return err
			}
			opaque, err := codec.Encode(tok)
			if err != nil {
				return err
			}
			cmd.Println(opaque)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", token.DefaultTTL, "issue-to-expiry window")
	return cmd
}

func newTokenDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode an opaque token without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := token.NewCodec().Decode(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, tok)
		},
	}
}
