// Package dataset reads and writes the file formats that connect pipeline
// stages: CSV tables, entity JSONL, GeoJSON, and point shapefiles. Stage
// outputs are written to a temp file and renamed into place, so a stage that
// fails leaves no usable output behind.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/text2map/text2map-cli/internal/model"
)

// Columns names the input CSV columns holding the record identifier,
// timestamp, and text.
type Columns struct {
	ID   string
	Time string
	Text string
}

// DefaultColumns matches the documented input contract.
func DefaultColumns() Columns {
	return Columns{ID: "tweet_id", Time: "created_at", Text: "text"}
}

// ReadRecords reads raw records from a CSV file. The header must contain the
// configured columns; "id" is accepted in place of "tweet_id". Rows with a
// wrong field count are an error naming the line, never silently dropped.
func ReadRecords(path string, cols Columns) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}

	idx := headerIndex(header)
	idCol, ok := idx[cols.ID]
	if !ok {
		// The documented input contract allows either tweet_id or id.
		idCol, ok = idx["id"]
	}
	timeCol, timeOK := idx[cols.Time]
	textCol, textOK := idx[cols.Text]

	var missing []string
	if !ok {
		missing = append(missing, cols.ID)
	}
	if !timeOK {
		missing = append(missing, cols.Time)
	}
	if !textOK {
		missing = append(missing, cols.Text)
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("dataset: %s is missing required columns %s (found: %s)",
			path, strings.Join(missing, ", "), strings.Join(header, ", "))
	}

	var recs []model.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s line %d", path, line)
		}
		recs = append(recs, model.Record{
			ID:   row[idCol],
			Time: row[timeCol],
			Text: row[textCol],
		})
	}
	return recs, nil
}

// WriteCleanedCSV writes cleaned records as id,time,clean_text.
func WriteCleanedCSV(path string, recs []model.CleanedRecord) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "time", "clean_text"}); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := cw.Write([]string{rec.ID, rec.Time, rec.CleanText}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadCleanedCSV reads the cleaning stage's output table.
func ReadCleanedCSV(path string) ([]model.CleanedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}
	idx := headerIndex(header)
	for _, col := range []string{"id", "time", "clean_text"} {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("dataset: %s is missing column %s", path, col)
		}
	}

	var recs []model.CleanedRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s line %d", path, line)
		}
		recs = append(recs, model.CleanedRecord{
			Record:    model.Record{ID: row[idx["id"]], Time: row[idx["time"]]},
			CleanText: row[idx["clean_text"]],
		})
	}
	return recs, nil
}

var entityHeader = []string{"id", "time", "entity", "type", "score", "start", "end"}

// WriteEntitiesCSV writes extracted entities, one row per entity.
func WriteEntitiesCSV(path string, ents []model.Entity) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(entityHeader); err != nil {
			return err
		}
		for _, e := range ents {
			row := []string{
				e.RecordID, e.RecordTime, e.Text, string(e.Type),
				formatScore(e.Score),
				strconv.Itoa(e.Start), strconv.Itoa(e.End),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteGeocodedCSV writes geocoded entities including failures, preserving
// row alignment with the NER output.
func WriteGeocodedCSV(path string, ents []model.GeocodedEntity) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		header := append(append([]string{}, entityHeader...),
			"lat", "lon", "matched", "fail_reason", "country", "region", "county")
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, e := range ents {
			lat, lon := "", ""
			if e.Matched {
				lat = strconv.FormatFloat(e.Lat, 'f', -1, 64)
				lon = strconv.FormatFloat(e.Lon, 'f', -1, 64)
			}
			row := []string{
				e.RecordID, e.RecordTime, e.Text, string(e.Type),
				formatScore(e.Score),
				strconv.Itoa(e.Start), strconv.Itoa(e.End),
				lat, lon, strconv.FormatBool(e.Matched), e.FailReason,
				e.Country, e.Region, e.County,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return idx
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place on success.
func writeAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s-*", filepath.Base(path)))
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "dataset: rename into %s", path)
	}
	return nil
}
