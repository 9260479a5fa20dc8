package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/viz"
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Render geocoded entities",
	Long:  "Renders geocoded entity GeoJSON as a static density heatmap or a time-binned GIF animation over the configured boundary layers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		mode, _ := cmd.Flags().GetString("mode")
		if mode == "" {
			mode = cfg.Viz.Mode
		}

		points, err := dataset.ReadGeocodedGeoJSON(input)
		if err != nil {
			return err
		}

		boundaries, err := loadBoundaries()
		if err != nil {
			return err
		}

		vizCfg := cfg.Viz
		vizCfg.Mode = mode
		renderer := viz.NewRenderer(vizCfg, boundaries)

		switch mode {
		case "animate":
			return renderer.Animate(ctx, points, filepath.Join(outputDir, "animation.gif"))
		case "heatmap":
			return renderer.Heatmap(points, filepath.Join(outputDir, "heatmap.png"))
		default:
			return eris.Errorf("unknown mode %q (want heatmap or animate)", mode)
		}
	},
}

func init() {
	visualizeCmd.Flags().String("input", "", "geocoded entity GeoJSON")
	visualizeCmd.Flags().String("output-dir", "data/processed", "directory for rendered artifacts")
	visualizeCmd.Flags().String("mode", "", "heatmap or animate (overrides config)")
	_ = visualizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(visualizeCmd)
}
