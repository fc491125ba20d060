package commands

import (
	"github.com/spf13/cobra"

	"herbledger/pkg/domain"
)

func newRecordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append sub-records to a batch",
		Long:  "Append-only processing, shipment, audit, and tracking records. Existing entries are never modified.",
	}
	cmd.AddCommand(newProcessingCommand())
	cmd.AddCommand(newShipmentCommand())
	cmd.AddCommand(newCheckpointCommand())
	cmd.AddCommand(newAuditCommand())
	return cmd
}

func newProcessingCommand() *cobra.Command {
	var (
		actorID        string
		processingType string
		labReportRef   string
		qualityGrade   string
	)
	cmd := &cobra.Command{
		Use:   "processing <batch-id>",
		Short: "Append a processing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batch, err := svc.AppendProcessingRecord(cmd.Context(), args[0], domain.ProcessingRecord{
				RecordMeta:     domain.RecordMeta{ActorID: actorID},
				ProcessingType: processingType,
				LabReportRef:   labReportRef,
				QualityGrade:   qualityGrade,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "processor id (required)")
	cmd.Flags().StringVar(&processingType, "type", "", "processing step, e.g. drying, grinding (required)")
	cmd.Flags().StringVar(&labReportRef, "lab-report", "", "content hash of the lab report")
	cmd.Flags().StringVar(&qualityGrade, "grade", "", "assigned quality grade")
	return cmd
}

func newShipmentCommand() *cobra.Command {
	var (
		actorID              string
		originLat, originLon float64
		destLat, destLon     float64
		shipmentDate         string
	)
	cmd := &cobra.Command{
		Use:   "shipment <batch-id>",
		Short: "Append a shipment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			shipped, err := parseTime(shipmentDate)
			if err != nil {
				return err
			}
			batch, err := svc.AppendShipmentRecord(cmd.Context(), args[0], domain.ShipmentRecord{
				RecordMeta:   domain.RecordMeta{ActorID: actorID},
				Origin:       domain.Location{Latitude: originLat, Longitude: originLon},
				Destination:  domain.Location{Latitude: destLat, Longitude: destLon},
				ShipmentDate: shipped,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "distributor id (required)")
	cmd.Flags().Float64Var(&originLat, "origin-lat", 0, "origin latitude")
	cmd.Flags().Float64Var(&originLon, "origin-lon", 0, "origin longitude")
	cmd.Flags().Float64Var(&destLat, "dest-lat", 0, "destination latitude")
	cmd.Flags().Float64Var(&destLon, "dest-lon", 0, "destination longitude")
	cmd.Flags().StringVar(&shipmentDate, "date", "", "shipment date, RFC3339 or YYYY-MM-DD")
	return cmd
}

func newCheckpointCommand() *cobra.Command {
	var (
		lat, lon float64
		note     string
	)
	cmd := &cobra.Command{
		Use:   "checkpoint <batch-id> <shipment-record-id>",
		Short: "Append a tracking checkpoint to an existing shipment record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batch, err := svc.AppendTrackingCheckpoint(cmd.Context(), args[0], args[1], domain.TrackingCheckpoint{
				Location: domain.Location{Latitude: lat, Longitude: lon},
				Note:     note,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "checkpoint latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "checkpoint longitude")
	cmd.Flags().StringVar(&note, "note", "", "free-form checkpoint note")
	return cmd
}

func newAuditCommand() *cobra.Command {
	var (
		actorID        string
		auditType      string
		findings       string
		certStatus     string
		certificateRef string
	)
	cmd := &cobra.Command{
		Use:   "audit <batch-id>",
		Short: "Append an audit record",
		Long:  "Appends a regulatory audit. A rejected certification rolls a verified or processed batch back to harvested.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			batch, err := svc.AppendAuditRecord(cmd.Context(), args[0], domain.AuditRecord{
				RecordMeta:          domain.RecordMeta{ActorID: actorID},
				AuditType:           auditType,
				Findings:            findings,
				CertificationStatus: domain.CertificationStatus(certStatus),
				CertificateRef:      certificateRef,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, batch)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "auditor id (required)")
	cmd.Flags().StringVar(&auditType, "type", "", "audit kind, e.g. quality, organic-certification")
	cmd.Flags().StringVar(&findings, "findings", "", "audit findings")
	cmd.Flags().StringVar(&certStatus, "certification", "pending", "certification outcome: approved, rejected or pending")
	cmd.Flags().StringVar(&certificateRef, "certificate", "", "content hash of the issued certificate")
	return cmd
}
