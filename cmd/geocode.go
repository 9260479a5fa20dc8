package main

import (
	"github.com/spf13/cobra"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/geocoding"
	"github.com/text2map/text2map-cli/internal/retry"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode extracted entities",
	Long:  "Resolves entity JSONL to coordinates via Nominatim, attributes each point to configured boundary regions, and writes GeoJSON, Shapefile, and CSV outputs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		outputDir, _ := cmd.Flags().GetString("output-dir")

		docs, err := dataset.ReadEntityDocs(input)
		if err != nil {
			return err
		}

		boundaries, err := loadBoundaries()
		if err != nil {
			return err
		}

		geocoder, closeGeocoder, err := newGeocoder()
		if err != nil {
			return err
		}
		defer closeGeocoder()

		stage := geocoding.NewStage(geocoder, boundaries, cfg.Geocode.MaxRows, retry.Config{
			MaxAttempts:    cfg.Geocode.MaxAttempts,
			InitialBackoff: cfg.Geocode.InitialBackoff,
			OnRetry:        retry.Logger("nominatim", "search"),
		})

		geocoded, err := stage.Run(ctx, geocoding.EntitiesFromDocs(docs))
		if err != nil {
			return err
		}

		return geocoding.WriteOutputs(outputDir, geocoded)
	},
}

func init() {
	geocodeCmd.Flags().String("input", "", "entity JSONL from the ner stage")
	geocodeCmd.Flags().String("output-dir", "data/processed", "directory for geocoding outputs")
	_ = geocodeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(geocodeCmd)
}
