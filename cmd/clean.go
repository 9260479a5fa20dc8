package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/clean"
	"github.com/text2map/text2map-cli/internal/dataset"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean raw social-media text",
	Long:  "Strips retweet markers, handles, emoji, and URLs from the input CSV, writing every row back out with a normalized text column.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")

		cols := dataset.Columns{
			ID:   cfg.Clean.IDColumn,
			Time: cfg.Clean.TimeColumn,
			Text: cfg.Clean.TextColumn,
		}
		records, err := dataset.ReadRecords(input, cols)
		if err != nil {
			return err
		}

		cleaned := clean.Records(records)
		if err := dataset.WriteCleanedCSV(output, cleaned); err != nil {
			return err
		}

		zap.L().Info("cleaning finished",
			zap.Int("records", len(cleaned)),
			zap.String("output", output))
		return nil
	},
}

func init() {
	cleanCmd.Flags().String("input", "", "input CSV of raw records")
	cleanCmd.Flags().String("output", "cleaned.csv", "output CSV path")
	_ = cleanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(cleanCmd)
}
