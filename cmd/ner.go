package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/ner"
)

var nerCmd = &cobra.Command{
	Use:   "ner",
	Short: "Extract location entities",
	Long:  "Runs the fine-tuned NER model over cleaned records and writes entity spans as CSV and JSONL. The model artifact is validated before any record is read.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		jsonlOut, _ := cmd.Flags().GetString("jsonl")
		modelPath, _ := cmd.Flags().GetString("model")
		if modelPath == "" {
			modelPath = cfg.NER.ModelPath
		}

		if modelPath != "" {
			if _, err := ner.ValidateArtifact(modelPath); err != nil {
				return err
			}
		}

		client := newNERClient()
		if info, err := client.Info(ctx); err != nil {
			return err
		} else if modelPath != "" && info.ModelPath != "" && info.ModelPath != modelPath {
			zap.L().Warn("inference server reports a different model",
				zap.String("configured", modelPath),
				zap.String("loaded", info.ModelPath))
		}

		records, err := dataset.ReadCleanedCSV(input)
		if err != nil {
			return err
		}

		stage := ner.NewStage(client, cfg.NER.ConfidenceThreshold, cfg.NER.BatchSize)
		entities, docs, err := stage.Run(ctx, records)
		if err != nil {
			return err
		}

		if err := dataset.WriteEntitiesCSV(output, entities); err != nil {
			return err
		}
		if err := dataset.WriteEntityDocs(jsonlOut, docs); err != nil {
			return err
		}

		zap.L().Info("entity extraction written",
			zap.Int("entities", len(entities)),
			zap.String("output", output),
			zap.String("jsonl", jsonlOut))
		return nil
	},
}

func init() {
	nerCmd.Flags().String("input", "", "cleaned records CSV")
	nerCmd.Flags().String("output", "ner.csv", "entity CSV output path")
	nerCmd.Flags().String("jsonl", "ner.jsonl", "entity JSONL output path")
	nerCmd.Flags().String("model", "", "model artifact directory (overrides config)")
	_ = nerCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(nerCmd)
}
