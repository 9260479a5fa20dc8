package viz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/text2map/text2map-cli/internal/model"
)

func pointAt(ts string) model.GeocodedEntity {
	return model.GeocodedEntity{
		Entity:  model.Entity{RecordTime: ts},
		Lat:     29.76,
		Lon:     -95.37,
		Matched: true,
	}
}

func TestBinByTime(t *testing.T) {
	points := []model.GeocodedEntity{
		pointAt("2017-08-26 08:00:00"),
		pointAt("2017-08-26 22:30:00"),
		pointAt("2017-08-28 01:00:00"),
	}

	bins, skipped := BinByTime(points, 24*time.Hour, false)
	assert.Zero(t, skipped)
	require.Len(t, bins, 3)
	assert.Len(t, bins[0].Points, 2)
	assert.Empty(t, bins[1].Points)
	assert.Len(t, bins[2].Points, 1)
	assert.Equal(t, 24*time.Hour, bins[0].End.Sub(bins[0].Start))
}

func TestBinByTimeCumulative(t *testing.T) {
	points := []model.GeocodedEntity{
		pointAt("2017-08-26 08:00:00"),
		pointAt("2017-08-27 08:00:00"),
	}

	bins, _ := BinByTime(points, 24*time.Hour, true)
	require.Len(t, bins, 2)
	assert.Len(t, bins[0].Points, 1)
	assert.Len(t, bins[1].Points, 2)
}

func TestBinByTimeSkipsUnparseable(t *testing.T) {
	points := []model.GeocodedEntity{
		pointAt("2017-08-26 08:00:00"),
		pointAt("yesterday-ish"),
	}

	bins, skipped := BinByTime(points, 24*time.Hour, false)
	assert.Equal(t, 1, skipped)
	require.Len(t, bins, 1)
	assert.Len(t, bins[0].Points, 1)
}

func TestBinByTimeIgnoresUnmatched(t *testing.T) {
	unmatched := pointAt("2017-08-26 08:00:00")
	unmatched.Matched = false

	bins, skipped := BinByTime([]model.GeocodedEntity{unmatched}, 24*time.Hour, false)
	assert.Zero(t, skipped)
	assert.Empty(t, bins)
}

func TestBinByTimeAlternateLayouts(t *testing.T) {
	points := []model.GeocodedEntity{
		pointAt("2017-08-26T08:00:00Z"),
		pointAt("2017-08-26"),
	}

	bins, skipped := BinByTime(points, 24*time.Hour, false)
	assert.Zero(t, skipped)
	require.Len(t, bins, 1)
	assert.Len(t, bins[0].Points, 2)
}
