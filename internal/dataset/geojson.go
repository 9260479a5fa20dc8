package dataset

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/text2map/text2map-cli/internal/model"
)

// WriteGeocodedGeoJSON writes the matched geocoded entities as a
// FeatureCollection of points. Unmatched entities carry no coordinate and
// are excluded here; the CSV artifact covers them.
func WriteGeocodedGeoJSON(path string, ents []model.GeocodedEntity) error {
	fc := &geojson.FeatureCollection{}
	for _, e := range ents {
		if !e.Matched {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{e.Lon, e.Lat}),
			Properties: map[string]any{
				"id":      e.RecordID,
				"time":    e.RecordTime,
				"entity":  e.Text,
				"type":    string(e.Type),
				"score":   e.Score,
				"country": e.Country,
				"region":  e.Region,
				"county":  e.County,
			},
		})
	}

	return writeAtomic(path, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(fc)
	})
}

// ReadGeocodedGeoJSON reads a point FeatureCollection back into geocoded
// entities. Non-point geometries are rejected.
func ReadGeocodedGeoJSON(path string) ([]model.GeocodedEntity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse geojson %s", path)
	}

	ents := make([]model.GeocodedEntity, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("dataset: %s feature %d is not a point", path, i)
		}
		coords := pt.Coords()

		e := model.GeocodedEntity{Matched: true, Lon: coords[0], Lat: coords[1]}
		e.RecordID = propString(f.Properties, "id")
		e.RecordTime = propString(f.Properties, "time")
		e.Text = propString(f.Properties, "entity")
		e.Type = model.EntityType(propString(f.Properties, "type"))
		e.Country = propString(f.Properties, "country")
		e.Region = propString(f.Properties, "region")
		e.County = propString(f.Properties, "county")
		if s, ok := f.Properties["score"].(float64); ok {
			e.Score = s
		}
		ents = append(ents, e)
	}
	return ents, nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
