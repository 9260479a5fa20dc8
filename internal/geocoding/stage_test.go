package geocoding

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/model"
	"github.com/text2map/text2map-cli/internal/retry"
	"github.com/text2map/text2map-cli/pkg/nominatim"
)

type fakeSearcher struct {
	queries []string
	results map[string]*nominatim.Result
	errs    map[string]error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (*nominatim.Result, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &nominatim.Result{Matched: false}, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func entity(recordID, text string, entityType model.EntityType) model.Entity {
	return model.Entity{
		RecordID:   recordID,
		RecordTime: "2017-08-27 14:02:11",
		Text:       text,
		Type:       entityType,
		Score:      0.9,
	}
}

func TestRunMatch(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"Houston": {Latitude: 29.7589, Longitude: -95.3677, DisplayName: "Houston", Matched: true},
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
	})
	require.NoError(t, err)
	require.Len(t, geocoded, 1)
	assert.True(t, geocoded[0].Matched)
	assert.InDelta(t, 29.7589, geocoded[0].Lat, 1e-6)
	assert.InDelta(t, -95.3677, geocoded[0].Lon, 1e-6)
	assert.Empty(t, geocoded[0].FailReason)
}

func TestRunAssemblesRecordQuery(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"George R. Brown Convention Center, Buffalo Bayou, Houston": {
			Latitude: 29.75, Longitude: -95.36, Matched: true,
		},
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
		entity("1", "Buffalo Bayou", model.TypeLocation),
		entity("1", "George R. Brown Convention Center", model.TypeFacility),
	})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "George R. Brown Convention Center, Buffalo Bayou, Houston", searcher.queries[0])

	require.Len(t, geocoded, 3)
	for _, ge := range geocoded {
		assert.True(t, ge.Matched)
		assert.InDelta(t, 29.75, ge.Lat, 1e-6)
	}
}

func TestRunStripsHashAndDedupes(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"Houston": {Latitude: 29.75, Longitude: -95.36, Matched: true},
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "#Houston", model.TypePlace),
		entity("1", "houston", model.TypePlace),
	})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "Houston", searcher.queries[0])
	assert.Len(t, geocoded, 2)
}

func TestRunSharesUniqueQueries(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"Houston": {Latitude: 29.75, Longitude: -95.36, Matched: true},
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
		entity("2", "Houston", model.TypePlace),
	})
	require.NoError(t, err)

	assert.Len(t, searcher.queries, 1)
	require.Len(t, geocoded, 2)
	assert.True(t, geocoded[0].Matched)
	assert.True(t, geocoded[1].Matched)
}

func TestRunNoMatchFailureMarker(t *testing.T) {
	searcher := &fakeSearcher{}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "xyzzyplugh", model.TypePlace),
	})
	require.NoError(t, err)
	require.Len(t, geocoded, 1)
	assert.False(t, geocoded[0].Matched)
	assert.Equal(t, "no match", geocoded[0].FailReason)
	assert.Zero(t, geocoded[0].Lat)
	assert.Zero(t, geocoded[0].Lon)
}

func TestRunServiceErrorAfterRetries(t *testing.T) {
	searcher := &fakeSearcher{errs: map[string]error{
		"Houston": eris.New("nominatim: search returned status 503: unavailable"),
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
	})
	require.NoError(t, err)

	assert.Len(t, searcher.queries, 2)
	require.Len(t, geocoded, 1)
	assert.False(t, geocoded[0].Matched)
	assert.Contains(t, geocoded[0].FailReason, "service error")
}

func TestRunOutOfRangeCoordinates(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"Houston": {Latitude: 291.0, Longitude: -95.36, Matched: true},
	}}

	stage := NewStage(searcher, nil, 0, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
	})
	require.NoError(t, err)
	require.Len(t, geocoded, 1)
	assert.False(t, geocoded[0].Matched)
	assert.Equal(t, "coordinates out of range", geocoded[0].FailReason)
}

func TestRunMaxRowsCapsRecords(t *testing.T) {
	searcher := &fakeSearcher{results: map[string]*nominatim.Result{
		"Houston": {Latitude: 29.75, Longitude: -95.36, Matched: true},
		"Dallas":  {Latitude: 32.78, Longitude: -96.80, Matched: true},
	}}

	stage := NewStage(searcher, nil, 1, fastRetry())
	geocoded, err := stage.Run(context.Background(), []model.Entity{
		entity("1", "Houston", model.TypePlace),
		entity("2", "Dallas", model.TypePlace),
	})
	require.NoError(t, err)

	assert.Len(t, searcher.queries, 1)
	require.Len(t, geocoded, 1)
	assert.Equal(t, "Houston", geocoded[0].Text)
}

func TestEntitiesFromDocs(t *testing.T) {
	docs := []dataset.EntityDoc{
		{
			ID:   "1",
			Time: "2017-08-27 14:02:11",
			Text: "Flooding near Houston!",
			Label: []dataset.Span{
				{Start: 14, End: 21, Label: "GPE"},
			},
		},
		{
			ID:    "2",
			Text:  "no places",
			Label: []dataset.Span{},
		},
		{
			ID:   "3",
			Text: "bad span",
			Label: []dataset.Span{
				{Start: 5, End: 99, Label: "GPE"},
				{Start: 0, End: 3, Label: "PERSON"},
			},
		},
	}

	entities := EntitiesFromDocs(docs)
	require.Len(t, entities, 1)
	assert.Equal(t, "1", entities[0].RecordID)
	assert.Equal(t, "Houston", entities[0].Text)
	assert.Equal(t, model.TypePlace, entities[0].Type)
}

func TestWriteOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	entities := []model.GeocodedEntity{
		{
			Entity:  entity("1", "Houston", model.TypePlace),
			Lat:     29.7589,
			Lon:     -95.3677,
			Matched: true,
		},
		{
			Entity:     entity("2", "xyzzyplugh", model.TypePlace),
			FailReason: "no match",
		},
	}
	require.NoError(t, WriteOutputs(dir, entities))

	for _, name := range []string{"entities.geojson", "entities.shp", "entities.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	fromGeoJSON, err := dataset.ReadGeocodedGeoJSON(filepath.Join(dir, "entities.geojson"))
	require.NoError(t, err)
	assert.Len(t, fromGeoJSON, 1)
}
