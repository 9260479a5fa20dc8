// Package geocoding resolves extracted entities to coordinates and attributes
// them to administrative regions.
package geocoding

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/boundary"
	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/model"
	"github.com/text2map/text2map-cli/internal/retry"
	"github.com/text2map/text2map-cli/pkg/nominatim"
)

// Searcher is the geocoding lookup the stage depends on. Both the raw
// Nominatim client and its cached wrapper satisfy it.
type Searcher interface {
	Search(ctx context.Context, query string) (*nominatim.Result, error)
}

// Stage geocodes entities record by record.
type Stage struct {
	client     Searcher
	boundaries *boundary.Set
	maxRows    int
	retryCfg   retry.Config
	logger     *zap.Logger
}

// NewStage creates a geocoding stage. boundaries may be nil when no layers
// are configured; maxRows caps how many records are geocoded (0 means no cap).
func NewStage(client Searcher, boundaries *boundary.Set, maxRows int, retryCfg retry.Config) *Stage {
	if retryCfg.ShouldRetry == nil {
		retryCfg.ShouldRetry = isRetryable
	}
	return &Stage{
		client:     client,
		boundaries: boundaries,
		maxRows:    maxRows,
		retryCfg:   retryCfg,
		logger:     zap.L().With(zap.String("component", "geocoding")),
	}
}

// isRetryable treats transport errors and rate-limit or server statuses as
// retryable; anything else fails the query immediately.
func isRetryable(err error) bool {
	if retry.IsTransient(err) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"status 429", "status 500", "status 502", "status 503", "status 504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// EntitiesFromDocs rebuilds the entity list from JSONL interchange documents.
// Scores are not carried in the interchange format and come back as zero.
func EntitiesFromDocs(docs []dataset.EntityDoc) []model.Entity {
	var entities []model.Entity
	for _, doc := range docs {
		runes := []rune(doc.Text)
		for _, span := range doc.Label {
			entityType, ok := model.TypeFromLabel(span.Label)
			if !ok {
				continue
			}
			if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
				continue
			}
			text := strings.TrimSpace(string(runes[span.Start:span.End]))
			if text == "" {
				continue
			}
			entities = append(entities, model.Entity{
				RecordID:   doc.ID,
				RecordTime: doc.Time,
				Text:       text,
				Type:       entityType,
				Start:      span.Start,
				End:        span.End,
			})
		}
	}
	return entities
}

// recordGroup is one record's entities in input order.
type recordGroup struct {
	recordID string
	entities []int // indexes into the flat entity slice
}

// Run geocodes entities, preserving one output row per input entity in input
// order. Entities from the same record share one assembled query; identical
// queries across records are resolved once.
func (s *Stage) Run(ctx context.Context, entities []model.Entity) ([]model.GeocodedEntity, error) {
	groups := groupByRecord(entities)

	if s.maxRows > 0 && len(groups) > s.maxRows {
		s.logger.Warn("record cap reached, truncating",
			zap.Int("records", len(groups)),
			zap.Int("max_rows", s.maxRows))
		groups = groups[:s.maxRows]
	}

	// Assemble one query per record and collect the distinct set.
	queryByRecord := make(map[string]string, len(groups))
	var uniqueQueries []string
	seen := make(map[string]bool)
	for _, g := range groups {
		query := assembleQuery(entities, g.entities)
		queryByRecord[g.recordID] = query
		if query != "" && !seen[query] {
			seen[query] = true
			uniqueQueries = append(uniqueQueries, query)
		}
	}

	s.logger.Info("geocoding queries",
		zap.Int("records", len(groups)),
		zap.Int("unique_queries", len(uniqueQueries)))

	type outcome struct {
		result     *nominatim.Result
		failReason string
	}
	outcomes := make(map[string]outcome, len(uniqueQueries))

	for _, query := range uniqueQueries {
		result, err := retry.DoVal(ctx, s.retryCfg, func(ctx context.Context) (*nominatim.Result, error) {
			return s.client.Search(ctx, query)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "geocoding: aborted")
			}
			s.logger.Warn("geocoding query failed",
				zap.String("query", query),
				zap.Error(err))
			outcomes[query] = outcome{failReason: "service error: " + eris.Cause(err).Error()}
			continue
		}
		if result.Matched && !model.ValidCoordinates(result.Latitude, result.Longitude) {
			outcomes[query] = outcome{failReason: "coordinates out of range"}
			continue
		}
		if !result.Matched {
			outcomes[query] = outcome{failReason: "no match"}
			continue
		}
		outcomes[query] = outcome{result: result}
	}

	var geocoded []model.GeocodedEntity
	matched := 0
	for _, g := range groups {
		query := queryByRecord[g.recordID]
		for _, idx := range g.entities {
			ge := model.GeocodedEntity{Entity: entities[idx]}

			if query == "" {
				ge.FailReason = "empty query"
			} else if out := outcomes[query]; out.result != nil {
				ge.Matched = true
				ge.Lat = out.result.Latitude
				ge.Lon = out.result.Longitude
				ge.Country, ge.Region, ge.County = s.boundaries.Attribute(ge.Lat, ge.Lon)
				matched++
			} else {
				ge.FailReason = out.failReason
			}
			geocoded = append(geocoded, ge)
		}
	}

	s.logger.Info("geocoding finished",
		zap.Int("entities", len(geocoded)),
		zap.Int("matched", matched))

	return geocoded, nil
}

// groupByRecord partitions entity indexes by record, preserving first-seen
// record order and entity order within each record.
func groupByRecord(entities []model.Entity) []recordGroup {
	var groups []recordGroup
	byID := make(map[string]int)
	for i, e := range entities {
		gi, ok := byID[e.RecordID]
		if !ok {
			gi = len(groups)
			byID[e.RecordID] = gi
			groups = append(groups, recordGroup{recordID: e.RecordID})
		}
		groups[gi].entities = append(groups[gi].entities, i)
	}
	return groups
}

// assembleQuery builds one record's search string: entity texts deduplicated
// within each type, hash marks stripped, joined facility-first then location
// then place. Specific-to-general ordering reads like a postal address.
func assembleQuery(entities []model.Entity, idxs []int) string {
	perType := map[model.EntityType][]string{}
	seen := map[model.EntityType]map[string]bool{}

	for _, i := range idxs {
		e := entities[i]
		text := strings.TrimSpace(strings.ReplaceAll(e.Text, "#", ""))
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if seen[e.Type] == nil {
			seen[e.Type] = map[string]bool{}
		}
		if seen[e.Type][key] {
			continue
		}
		seen[e.Type][key] = true
		perType[e.Type] = append(perType[e.Type], text)
	}

	var parts []string
	for _, t := range []model.EntityType{model.TypeFacility, model.TypeLocation, model.TypePlace} {
		parts = append(parts, perType[t]...)
	}
	return strings.Join(parts, ", ")
}
