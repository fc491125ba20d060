package commands

import (
	"github.com/spf13/cobra"

	"herbledger/internal/ledger"
	"herbledger/pkg/domain"
)

func newRegisterCommand() *cobra.Command {
	var (
		producerID  string
		herbType    string
		quantity    float64
		harvestDate string
		lat, lon    float64
		contentRefs []string
	)
	cmd := &cobra.Command{
		Use:   "register <batch-id>",
		Short: "Register a new batch in harvested state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			harvested, err := parseTime(harvestDate)
			if err != nil {
				return err
			}
			batch, err := svc.RegisterBatch(cmd.Context(), ledger.Registration{
				BatchID:     args[0],
				ProducerID:  producerID,
				HerbType:    herbType,
				Quantity:    quantity,
				HarvestDate: harvested,
				Location:    domain.Location{Latitude: lat, Longitude: lon},
				ContentRefs: contentRefs,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().StringVar(&producerID, "producer", "", "producer id (required)")
	cmd.Flags().StringVar(&herbType, "herb-type", "", "herb species (required)")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity in kg (required)")
	cmd.Flags().StringVar(&harvestDate, "harvest-date", "", "harvest date, RFC3339 or YYYY-MM-DD (required)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "harvest latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "harvest longitude")
	cmd.Flags().StringSliceVar(&contentRefs, "content-ref", nil, "content hash reference, repeatable")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "status <batch-id> <new-status>",
		Short: "Advance a batch to the next custody status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batch, err := svc.UpdateStatus(cmd.Context(), args[0], domain.BatchStatus(args[1]), actorID)
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "acting participant id (required)")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Print the latest committed state of a batch",
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
			return printJSON(cmd, batch)
		},
	}
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <batch-id>",
		Short: "Print every committed snapshot of a batch, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			history, err := svc.GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, history)
		},
	}
}

func newListCommand() *cobra.Command {
	var (
		producerID string
		herbType   string
		status     string
		offset     int
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches matching the given selectors, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batches, err := svc.QueryBatches(cmd.Context(), ledger.Query{
				ProducerID: producerID,
				HerbType:   herbType,
				Status:     domain.BatchStatus(status),
				Offset:     offset,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batches)
		},
	}
	cmd.Flags().StringVar(&producerID, "producer", "", "filter by producer id")
	cmd.Flags().StringVar(&herbType, "herb-type", "", "filter by herb species")
	cmd.Flags().StringVar(&status, "status", "", "filter by custody status")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip the first N results")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of results (0 = no cap)")
	return cmd
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <batch-id>",
		Short: "Print the existence and integrity summary for a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			summary, err := svc.Summarize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}
