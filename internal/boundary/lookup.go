package boundary

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/config"
)

// Find returns the name of the first region containing the point, or "" if no
// region contains it. Points on an edge count as inside.
func (l *Layer) Find(lat, lon float64) string {
	for i := range l.regions {
		r := &l.regions[i]
		if lon < r.minX || lon > r.maxX || lat < r.minY || lat > r.maxY {
			continue
		}
		if multiPolygonContains(r.Geom, lon, lat) {
			return r.Name
		}
	}
	return ""
}

// Regions returns the layer's regions. Used by renderers to draw outlines.
func (l *Layer) Regions() []Region {
	return l.regions
}

// multiPolygonContains reports whether the point is inside the multipolygon,
// counting ring crossings across all polygons so holes cancel out.
func multiPolygonContains(mp *geom.MultiPolygon, x, y float64) bool {
	crossings := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			crossings += ringCrossings(poly.LinearRing(j), x, y)
		}
	}
	return crossings%2 == 1
}

// ringCrossings counts how many ring edges a ray cast in +x from the point
// crosses.
func ringCrossings(ring *geom.LinearRing, x, y float64) int {
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride

	count := 0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := coords[i*stride], coords[i*stride+1]
		x2, y2 := coords[j*stride], coords[j*stride+1]

		if (y1 > y) != (y2 > y) {
			xCross := x1 + (y-y1)/(y2-y1)*(x2-x1)
			if x < xCross {
				count++
			}
		}
	}
	return count
}

// Set holds the optional country, region, and county layers.
type Set struct {
	Country *Layer
	Region  *Layer
	County  *Layer
}

// LoadSet loads all configured boundary layers. Layers with no configured
// path are left nil.
func LoadSet(cfg config.BoundariesConfig) (*Set, error) {
	set := &Set{}
	logger := zap.L().With(zap.String("component", "boundary"))

	load := func(layer config.LayerConfig, kind string) (*Layer, error) {
		if layer.Path == "" {
			return nil, nil
		}
		l, err := Load(layer.Path, layer.NameField)
		if err != nil {
			return nil, err
		}
		logger.Info("boundary layer loaded",
			zap.String("layer", kind),
			zap.String("path", layer.Path),
			zap.Int("regions", len(l.regions)))
		return l, nil
	}

	var err error
	if set.Country, err = load(cfg.Country, "country"); err != nil {
		return nil, err
	}
	if set.Region, err = load(cfg.Region, "region"); err != nil {
		return nil, err
	}
	if set.County, err = load(cfg.County, "county"); err != nil {
		return nil, err
	}
	return set, nil
}

// Attribute returns the containing country, region, and county names for a
// point. Missing layers and points outside every region yield "".
func (s *Set) Attribute(lat, lon float64) (country, region, county string) {
	if s == nil {
		return "", "", ""
	}
	if s.Country != nil {
		country = s.Country.Find(lat, lon)
	}
	if s.Region != nil {
		region = s.Region.Find(lat, lon)
	}
	if s.County != nil {
		county = s.County.Find(lat, lon)
	}
	return country, region, county
}
