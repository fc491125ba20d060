package commands

import (
	"github.com/spf13/cobra"

	"herbledger/internal/verify"
	"herbledger/pkg/domain"
)

func newVerifyCommand() *cobra.Command {
	var (
		imageQuality      float64
		speciesConfidence float64
		contamination     bool
		lat, lon          float64
	)
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a scanned token against the ledger",
		Long:  "Decodes the token, loads the referenced batch, recomputes its integrity hash, and scores authenticity together with any supplied analysis signals.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closer, err := openService()
			if err != nil {
				return err
			}
			defer closer()

			var signals verify.Signals
			if cmd.Flags().Changed("image-quality") {
				signals.ImageQuality = &imageQuality
			}
			if cmd.Flags().Changed("species-confidence") {
				signals.SpeciesConfidence = &speciesConfidence
			}
			if cmd.Flags().Changed("contamination") {
				signals.ContaminationDetected = &contamination
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				signals.GPSCoordinates = &domain.Location{Latitude: lat, Longitude: lon}
			}

			res, err := verify.NewVerifier(svc).Verify(cmd.Context(), args[0], signals)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().Float64Var(&imageQuality, "image-quality", 0, "image quality score from the classifier, 0-1")
	cmd.Flags().Float64Var(&speciesConfidence, "species-confidence", 0, "species match confidence from the classifier, 0-1")
	cmd.Flags().BoolVar(&contamination, "contamination", false, "whether contamination was detected")
	cmd.Flags().Float64Var(&lat, "lat", 0, "scan latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "scan longitude")
	return cmd
}
