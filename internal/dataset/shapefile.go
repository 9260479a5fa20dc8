package dataset

import (
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/text2map/text2map-cli/internal/model"
)

// shapefile attribute columns; DBF field names are capped at 10 chars.
func entityFields() []shp.Field {
	return []shp.Field{
		shp.StringField("ID", 32),
		shp.StringField("TIME", 32),
		shp.StringField("ENTITY", 80),
		shp.StringField("TYPE", 10),
		shp.FloatField("SCORE", 8, 4),
		shp.StringField("COUNTRY", 48),
		shp.StringField("REGION", 48),
		shp.StringField("COUNTY", 48),
	}
}

// WriteGeocodedShapefile writes matched geocoded entities as an ESRI point
// shapefile. go-shp writes in place, so the .shp/.shx/.dbf triple appears
// only after a successful run: on error the partial files are removed.
func WriteGeocodedShapefile(path string, ents []model.GeocodedEntity) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", filepath.Dir(path))
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "dataset: create shapefile %s", path)
	}
	defer func() {
		w.Close()
		if err != nil {
			removeShapefile(path)
		}
	}()

	w.SetFields(entityFields())

	row := -1
	for _, e := range ents {
		if !e.Matched {
			continue
		}
		w.Write(&shp.Point{X: e.Lon, Y: e.Lat})
		row++
		attrs := []any{
			e.RecordID, e.RecordTime, e.Text, string(e.Type), e.Score,
			e.Country, e.Region, e.County,
		}
		for col, v := range attrs {
			if werr := w.WriteAttribute(row, col, v); werr != nil {
				return eris.Wrapf(werr, "dataset: write shapefile attribute row %d col %d", row, col)
			}
		}
	}
	return nil
}

// removeShapefile deletes the .shp file and its .shx/.dbf sidecars.
func removeShapefile(path string) {
	base := path[:len(path)-len(filepath.Ext(path))]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		_ = os.Remove(base + ext)
	}
}
