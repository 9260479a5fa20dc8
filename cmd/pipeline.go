package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/text2map/text2map-cli/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run all stages end to end",
	Long:  "Cleans, extracts, geocodes, and renders in one pass. Every artifact lands in a fresh run directory under the configured output directory, with a run.json manifest written on completion.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		if outputDir != "" {
			cfg.Output.Dir = outputDir
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

		p := pipeline.New(cfg, newNERClient(), geocoder, boundaries)
		manifest, err := p.Run(ctx, input)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d records, %d entities, %d geocoded\n%s\n",
			manifest.RunID, manifest.Records, manifest.Entities, manifest.Matched, manifest.OutputDir)
		return nil
	},
}

func init() {
	pipelineCmd.Flags().String("input", "", "input CSV of raw records")
	pipelineCmd.Flags().String("output-dir", "", "run directory root (overrides config)")
	_ = pipelineCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(pipelineCmd)
}
