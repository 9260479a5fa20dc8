package geocoding

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/dataset"
	"github.com/text2map/text2map-cli/internal/model"
)

// WriteOutputs persists geocoding results to dir: entities.geojson and
// entities.shp hold matched points, entities.csv covers every entity
// including failures.
func WriteOutputs(dir string, entities []model.GeocodedEntity) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "geocoding: create output dir %s", dir)
	}

	geojsonPath := filepath.Join(dir, "entities.geojson")
	if err := dataset.WriteGeocodedGeoJSON(geojsonPath, entities); err != nil {
		return err
	}

	shpPath := filepath.Join(dir, "entities.shp")
	if err := dataset.WriteGeocodedShapefile(shpPath, entities); err != nil {
		return err
	}

	csvPath := filepath.Join(dir, "entities.csv")
	if err := dataset.WriteGeocodedCSV(csvPath, entities); err != nil {
		return err
	}

	zap.L().Info("geocoding outputs written",
		zap.String("dir", dir),
		zap.Int("entities", len(entities)))
	return nil
}
