// Package pipeline orchestrates the four processing stages end to end:
// cleaning, entity extraction, geocoding, and rendering.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/boundary"
	"github.com/text2map/text2map-cli/internal/clean"
	"github.com/text2map/text2map-cli/internal/config"
	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/geocoding"
	"github.com/text2map/text2map-cli/internal/ner"
	"github.com/text2map/text2map-cli/internal/retry"
	"github.com/text2map/text2map-cli/internal/viz"
	"github.com/text2map/text2map-cli/pkg/nermodel"
)

// Pipeline wires the stages together over one run directory.
type Pipeline struct {
	cfg        *config.Config
	nerClient  nermodel.Client
	geocoder   geocoding.Searcher
	boundaries *boundary.Set
}

// New creates a pipeline with all stage dependencies.
func New(cfg *config.Config, nerClient nermodel.Client, geocoder geocoding.Searcher, boundaries *boundary.Set) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		nerClient:  nerClient,
		geocoder:   geocoder,
		boundaries: boundaries,
	}
}

// StageResult records one stage's outcome in the run manifest.
type StageResult struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Rows       int    `json:"rows"`
}

// Manifest summarizes a pipeline run. It is written to run.json in the run
// directory.
type Manifest struct {
	RunID      string        `json:"run_id"`
	Input      string        `json:"input"`
	OutputDir  string        `json:"output_dir"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Records    int           `json:"records"`
	Entities   int           `json:"entities"`
	Matched    int           `json:"matched"`
	Stages     []StageResult `json:"stages"`
	Artifacts  []string      `json:"artifacts"`
}

// Run executes all stages over the input CSV. Every artifact lands in a fresh
// <output.dir>/<run-id>/ directory; the manifest is written last so a
// directory with a run.json is a completed run.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Manifest, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(p.cfg.Output.Dir, runID)
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", runID))

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create run dir %s", runDir)
	}

	manifest := &Manifest{
		RunID:     runID,
		Input:     inputPath,
		OutputDir: runDir,
		StartedAt: time.Now().UTC(),
	}

	track := func(name string, rows int, start time.Time) {
		manifest.Stages = append(manifest.Stages, StageResult{
			Name:       name,
			DurationMS: time.Since(start).Milliseconds(),
			Rows:       rows,
		})
	}

	log.Info("pipeline starting", zap.String("input", inputPath))

	// Fail fast on a broken model artifact before reading any input.
	if p.cfg.NER.ModelPath != "" {
		if _, err := ner.ValidateArtifact(p.cfg.NER.ModelPath); err != nil {
			return nil, err
		}
	}

	// Clean.
	start := time.Now()
	cols := dataset.Columns{
		ID:   p.cfg.Clean.IDColumn,
		Time: p.cfg.Clean.TimeColumn,
		Text: p.cfg.Clean.TextColumn,
	}
	records, err := dataset.ReadRecords(inputPath, cols)
	if err != nil {
		return nil, err
	}
	cleanedRecords := clean.Records(records)
	cleanedPath := filepath.Join(runDir, "cleaned.csv")
	if err := dataset.WriteCleanedCSV(cleanedPath, cleanedRecords); err != nil {
		return nil, err
	}
	manifest.Records = len(cleanedRecords)
	manifest.Artifacts = append(manifest.Artifacts, "cleaned.csv")
	track("clean", len(cleanedRecords), start)

	// Extract entities.
	start = time.Now()
	nerStage := ner.NewStage(p.nerClient, p.cfg.NER.ConfidenceThreshold, p.cfg.NER.BatchSize)
	entities, docs, err := nerStage.Run(ctx, cleanedRecords)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteEntitiesCSV(filepath.Join(runDir, "ner.csv"), entities); err != nil {
		return nil, err
	}
	if err := dataset.WriteEntityDocs(filepath.Join(runDir, "ner.jsonl"), docs); err != nil {
		return nil, err
	}
	manifest.Entities = len(entities)
	manifest.Artifacts = append(manifest.Artifacts, "ner.csv", "ner.jsonl")
	track("ner", len(entities), start)

	// Geocode.
	start = time.Now()
	geoStage := geocoding.NewStage(p.geocoder, p.boundaries, p.cfg.Geocode.MaxRows, retry.Config{
		MaxAttempts:    p.cfg.Geocode.MaxAttempts,
		InitialBackoff: p.cfg.Geocode.InitialBackoff,
		OnRetry:        retry.Logger("nominatim", "search"),
	})
	geocoded, err := geoStage.Run(ctx, entities)
	if err != nil {
		return nil, err
	}
	if err := geocoding.WriteOutputs(runDir, geocoded); err != nil {
		return nil, err
	}
	for _, ge := range geocoded {
		if ge.Matched {
			manifest.Matched++
		}
	}
	manifest.Artifacts = append(manifest.Artifacts, "entities.geojson", "entities.shp", "entities.csv")
	track("geocode", len(geocoded), start)

	// Render.
	start = time.Now()
	renderer := viz.NewRenderer(p.cfg.Viz, p.boundaries)
	switch p.cfg.Viz.Mode {
	case "animate":
		artifact := "animation.gif"
		if err := renderer.Animate(ctx, geocoded, filepath.Join(runDir, artifact)); err != nil {
			return nil, err
		}
		manifest.Artifacts = append(manifest.Artifacts, artifact)
	case "", "heatmap":
		artifact := "heatmap.png"
		if err := renderer.Heatmap(geocoded, filepath.Join(runDir, artifact)); err != nil {
			return nil, err
		}
		manifest.Artifacts = append(manifest.Artifacts, artifact)
	default:
		return nil, eris.Errorf("pipeline: unknown viz mode %q", p.cfg.Viz.Mode)
	}
	track("visualize", manifest.Matched, start)

	manifest.FinishedAt = time.Now().UTC()
	if err := writeManifest(filepath.Join(runDir, "run.json"), manifest); err != nil {
		return nil, err
	}

	log.Info("pipeline finished",
		zap.Int("records", manifest.Records),
		zap.Int("entities", manifest.Entities),
		zap.Int("matched", manifest.Matched),
		zap.String("output_dir", runDir))

	return manifest, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal manifest")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write manifest %s", path)
	}
	return nil
}
