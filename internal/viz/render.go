package viz

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/boundary"
	"github.com/text2map/text2map-cli/internal/config"
	"github.com/text2map/text2map-cli/internal/model"
)

// Renderer draws density maps for geocoded entities.
type Renderer struct {
	cfg        config.VizConfig
	boundaries *boundary.Set
	logger     *zap.Logger
}

// NewRenderer creates a renderer. boundaries may be nil, in which case the
// drawable extent comes from the points themselves and no outlines are drawn.
func NewRenderer(cfg config.VizConfig, boundaries *boundary.Set) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 960
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 64
	}
	return &Renderer{
		cfg:        cfg,
		boundaries: boundaries,
		logger:     zap.L().With(zap.String("component", "viz")),
	}
}

// Heatmap renders all matched points as a single density image and writes a
// PNG to path.
func (r *Renderer) Heatmap(points []model.GeocodedEntity, path string) error {
	extent, ok := DataExtent(r.boundaries, points)
	if !ok {
		return eris.New("viz: no boundary layers and no matched points, nothing to draw")
	}

	img, splatted := r.frame(extent, points, "")
	r.logger.Info("heatmap rendered",
		zap.Int("points", splatted),
		zap.String("path", path))

	if err := gg.SavePNG(path, img); err != nil {
		return eris.Wrapf(err, "viz: write heatmap %s", path)
	}
	return nil
}

// frame renders one image of the given points over the extent. label, if
// nonempty, is drawn in the top-left corner. Returns the image and how many
// points landed inside the extent.
func (r *Renderer) frame(extent Extent, points []model.GeocodedEntity, label string) (image.Image, int) {
	cols := r.cfg.Width / r.cfg.CellSize
	rows := r.cfg.Height / r.cfg.CellSize
	grid := NewGrid(extent, cols, rows)

	splatted := 0
	for _, p := range points {
		if !p.Matched {
			continue
		}
		if grid.Splat(p.Lat, p.Lon, r.cfg.KernelRadius) {
			splatted++
		}
	}

	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	r.drawHeat(dc, grid, extent)
	r.drawBoundaries(dc, extent)

	if label != "" {
		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(label, 12, 16, 0, 0.5)
	}

	return dc.Image(), splatted
}

// drawHeat fills grid cells colored by normalized density. Empty cells stay
// untouched so the background shows through.
func (r *Renderer) drawHeat(dc *gg.Context, grid *Grid, extent Extent) {
	max := grid.Max()
	if max <= 0 {
		return
	}

	cols, rows := grid.Dims()
	cellW := float64(r.cfg.Width) / float64(cols)
	cellH := float64(r.cfg.Height) / float64(rows)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			v := grid.Value(col, row) / max
			if v <= 0 {
				continue
			}
			cr, cg, cb := heatColor(v)
			alpha := 0.25 + 0.75*v
			dc.SetRGBA(cr, cg, cb, alpha)
			dc.DrawRectangle(float64(col)*cellW, float64(row)*cellH, cellW, cellH)
			dc.Fill()
		}
	}
}

// drawBoundaries strokes every loaded layer's polygon rings.
func (r *Renderer) drawBoundaries(dc *gg.Context, extent Extent) {
	if r.boundaries == nil {
		return
	}

	dc.SetRGBA(0.2, 0.2, 0.2, 0.9)
	dc.SetLineWidth(1.5)

	for _, layer := range []*boundary.Layer{r.boundaries.Country, r.boundaries.Region, r.boundaries.County} {
		if layer == nil {
			continue
		}
		for _, region := range layer.Regions() {
			mp := region.Geom
			for i := 0; i < mp.NumPolygons(); i++ {
				poly := mp.Polygon(i)
				for j := 0; j < poly.NumLinearRings(); j++ {
					ring := poly.LinearRing(j)
					coords := ring.FlatCoords()
					stride := ring.Stride()
					for k := 0; k*stride < len(coords); k++ {
						x, y := r.project(extent, coords[k*stride], coords[k*stride+1])
						if k == 0 {
							dc.MoveTo(x, y)
						} else {
							dc.LineTo(x, y)
						}
					}
					dc.ClosePath()
				}
			}
		}
	}
	dc.Stroke()
}

// project maps a lon/lat coordinate to pixel space, north up.
func (r *Renderer) project(extent Extent, lon, lat float64) (float64, float64) {
	x := (lon - extent.MinLon) / (extent.MaxLon - extent.MinLon) * float64(r.cfg.Width)
	y := (extent.MaxLat - lat) / (extent.MaxLat - extent.MinLat) * float64(r.cfg.Height)
	return x, y
}
