package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/boundary"
	"github.com/text2map/text2map-cli/internal/config"
	"github.com/text2map/text2map-cli/internal/geocoding"
	"github.com/text2map/text2map-cli/pkg/nermodel"
	"github.com/text2map/text2map-cli/pkg/nominatim"
)

var cfg *config.Config

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "text2map",
	Short: "Text-to-map processing pipeline",
	Long:  "Cleans social-media text, extracts location entities with a NER model, geocodes them, and renders heatmaps or animations over boundary layers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newGeocoder builds the Nominatim client, wrapped in the SQLite cache when
// one is configured. Callers must invoke the returned closer when done.
func newGeocoder() (geocoding.Searcher, func(), error) {
	client, err := nominatim.NewClient(cfg.Geocode.UserAgent,
		nominatim.WithBaseURL(cfg.Geocode.BaseURL),
		nominatim.WithRateLimit(cfg.Geocode.RateLimit))
	if err != nil {
		return nil, nil, err
	}

	if cfg.Geocode.CachePath == "" {
		return client, func() {}, nil
	}

	cache, err := nominatim.OpenCache(cfg.Geocode.CachePath)
	if err != nil {
		return nil, nil, err
	}
	return nominatim.NewCachedClient(client, cache), func() { _ = cache.Close() }, nil
}

func newNERClient() nermodel.Client {
	return nermodel.NewClient(cfg.NER.ServerURL, nermodel.WithTimeout(cfg.NER.RequestTimeout))
}

func loadBoundaries() (*boundary.Set, error) {
	return boundary.LoadSet(cfg.Boundaries)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
