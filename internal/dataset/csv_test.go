package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/text2map/text2map-cli/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRecords(t *testing.T) {
	path := writeFile(t, "tweets.csv",
		"tweet_id,created_at,text\n"+
			"1,2024-01-01T00:00:00Z,\"RT @bob: Flooding near Houston! http://t.co/x\"\n"+
			"2,2024-01-02T00:00:00Z,Hurricane near Tampa\n")

	recs, err := ReadRecords(path, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "2024-01-01T00:00:00Z", recs[0].Time)
	assert.Equal(t, "RT @bob: Flooding near Houston! http://t.co/x", recs[0].Text)
	assert.Equal(t, "Hurricane near Tampa", recs[1].Text)
}

func TestReadRecords_AcceptsIDColumn(t *testing.T) {
	path := writeFile(t, "tweets.csv", "id,created_at,text\n7,2024-02-02,storm\n")

	recs, err := ReadRecords(path, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "7", recs[0].ID)
}

func TestReadRecords_ExtraColumnsIgnored(t *testing.T) {
	path := writeFile(t, "tweets.csv",
		"user,tweet_id,lang,created_at,text\nbob,1,en,2024-01-01,flood\n")

	recs, err := ReadRecords(path, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "flood", recs[0].Text)
}

func TestReadRecords_MissingColumns(t *testing.T) {
	path := writeFile(t, "tweets.csv", "tweet_id,body\n1,hello\n")

	_, err := ReadRecords(path, DefaultColumns())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
	assert.Contains(t, err.Error(), "text")
}

func TestReadRecords_MalformedRowIsFatal(t *testing.T) {
	path := writeFile(t, "tweets.csv",
		"tweet_id,created_at,text\n1,2024-01-01,ok\n2,broken\n")

	_, err := ReadRecords(path, DefaultColumns())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestReadRecords_FileMissing(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "nope.csv"), DefaultColumns())
	assert.Error(t, err)
}

func TestCleanedCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cleaned.csv")
	recs := []model.CleanedRecord{
		{Record: model.Record{ID: "1", Time: "2024-01-01"}, CleanText: "Flooding near Houston!"},
		{Record: model.Record{ID: "2", Time: "2024-01-02"}, CleanText: "text, with commas\nand a newline"},
		{Record: model.Record{ID: "3", Time: "2024-01-03"}, CleanText: ""},
	}

	require.NoError(t, WriteCleanedCSV(path, recs))

	got, err := ReadCleanedCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range recs {
		assert.Equal(t, recs[i].ID, got[i].ID)
		assert.Equal(t, recs[i].Time, got[i].Time)
		assert.Equal(t, recs[i].CleanText, got[i].CleanText)
	}
}

func TestWriteEntitiesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.csv")
	ents := []model.Entity{
		{RecordID: "1", RecordTime: "2024-01-01", Text: "Houston", Type: model.TypePlace, Score: 0.92, Start: 14, End: 21},
	}
	require.NoError(t, WriteEntitiesCSV(path, ents))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,time,entity,type,score,start,end", lines[0])
	assert.Equal(t, "1,2024-01-01,Houston,place,0.9200,14,21", lines[1])
}

func TestWriteGeocodedCSV_IncludesFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoded.csv")
	ents := []model.GeocodedEntity{
		{
			Entity:  model.Entity{RecordID: "1", Text: "Houston", Type: model.TypePlace, Score: 0.92},
			Lat:     29.76, Lon: -95.37, Matched: true, Country: "United States", Region: "Texas",
		},
		{
			Entity:     model.Entity{RecordID: "2", Text: "Atlantis", Type: model.TypeLocation, Score: 0.7},
			Matched:    false,
			FailReason: "no match",
		},
	}
	require.NoError(t, WriteGeocodedCSV(path, ents))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "29.76")
	assert.Contains(t, lines[1], "true")
	assert.Contains(t, lines[2], "no match")
	assert.Contains(t, lines[2], "false")
	// Failed rows carry empty coordinate cells, not zeros.
	assert.True(t, strings.Contains(lines[2], ",,,false"), "line: %s", lines[2])
}

func TestWriteAtomic_NoFileOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	err := writeAtomic(path, func(w io.Writer) error {
		return assert.AnError
	})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be cleaned up")
}
