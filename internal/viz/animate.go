package viz

import (
	"context"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/text2map/text2map-cli/internal/model"
)

// Animate renders a time-binned GIF animation of matched points to path.
// Bins follow the configured window; cumulative mode carries earlier points
// into every later frame.
func (r *Renderer) Animate(ctx context.Context, points []model.GeocodedEntity, path string) error {
	extent, ok := DataExtent(r.boundaries, points)
	if !ok {
		return eris.New("viz: no boundary layers and no matched points, nothing to draw")
	}

	bins, skipped := BinByTime(points, r.cfg.Window, r.cfg.Cumulative)
	if len(bins) == 0 {
		return eris.New("viz: no points with usable timestamps")
	}

	frames := make([]*image.Paletted, len(bins))

	g, ctx := errgroup.WithContext(ctx)
	for i, bin := range bins {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			label := bin.Start.Format("2006-01-02 15:04")
			img, _ := r.frame(extent, bin.Points, label)
			frames[i] = toPaletted(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "viz: render frames")
	}

	delay := r.cfg.FrameDelay
	if delay <= 0 {
		delay = 40
	}
	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "viz: create animation %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := gif.EncodeAll(f, anim); err != nil {
		return eris.Wrapf(err, "viz: encode animation %s", path)
	}

	r.logger.Info("animation rendered",
		zap.Int("frames", len(frames)),
		zap.Int("skipped_points", skipped),
		zap.String("path", path))
	return nil
}

// toPaletted converts a frame to the GIF palette.
func toPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	p := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(p, bounds, img, bounds.Min, draw.Src)
	return p
}
