// Package ner extracts location entities from cleaned records using a
// fine-tuned token-classification model served over HTTP.
package ner

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/model"
	"github.com/text2map/text2map-cli/pkg/nermodel"
)

// Stage runs named-entity recognition over cleaned records.
type Stage struct {
	client    nermodel.Client
	threshold float64
	batchSize int
	logger    *zap.Logger
}

// NewStage creates a NER stage. Predictions scoring below threshold are
// discarded; texts are sent to the model batchSize at a time.
func NewStage(client nermodel.Client, threshold float64, batchSize int) *Stage {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Stage{
		client:    client,
		threshold: threshold,
		batchSize: batchSize,
		logger:    zap.L().With(zap.String("component", "ner")),
	}
}

// Run extracts entities from every record, returning the flat entity list and
// one document per record for the JSONL interchange file. Records whose clean
// text is empty are carried through with no labels.
func (s *Stage) Run(ctx context.Context, records []model.CleanedRecord) ([]model.Entity, []dataset.EntityDoc, error) {
	docs := make([]dataset.EntityDoc, len(records))
	for i, rec := range records {
		docs[i] = dataset.EntityDoc{
			ID:    rec.ID,
			Time:  rec.Time,
			Text:  rec.CleanText,
			Label: []dataset.Span{},
		}
	}

	var entities []model.Entity
	kept, dropped := 0, 0

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.CleanText
		}

		preds, err := s.client.Predict(ctx, texts)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ner: predict batch starting at record %d", start)
		}

		for i, recPreds := range preds {
			rec := batch[i]
			runes := []rune(rec.CleanText)

			for _, p := range recPreds {
				entityType, ok := model.TypeFromLabel(p.EntityGroup)
				if !ok {
					dropped++
					continue
				}
				if p.Score < s.threshold {
					dropped++
					continue
				}
				if p.Start < 0 || p.End > len(runes) || p.Start >= p.End {
					s.logger.Warn("prediction span out of range",
						zap.String("record_id", rec.ID),
						zap.Int("start", p.Start),
						zap.Int("end", p.End))
					dropped++
					continue
				}

				text := strings.TrimSpace(string(runes[p.Start:p.End]))
				if text == "" {
					dropped++
					continue
				}

				entities = append(entities, model.Entity{
					RecordID:   rec.ID,
					RecordTime: rec.Time,
					Text:       text,
					Type:       entityType,
					Score:      p.Score,
					Start:      p.Start,
					End:        p.End,
				})
				docs[start+i].Label = append(docs[start+i].Label, dataset.Span{
					Start: p.Start,
					End:   p.End,
					Label: entityType.Label(),
				})
				kept++
			}
		}
	}

	s.logger.Info("entity extraction finished",
		zap.Int("records", len(records)),
		zap.Int("entities", kept),
		zap.Int("discarded", dropped))

	return entities, docs, nil
}
