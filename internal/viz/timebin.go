package viz

import (
	"time"

	"go.uber.org/zap"

	"github.com/text2map/text2map-cli/internal/model"
)

// timeLayouts are tried in order when parsing record timestamps.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseRecordTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimeBin is one animation frame's worth of points.
type TimeBin struct {
	Start  time.Time
	End    time.Time
	Points []model.GeocodedEntity
}

// BinByTime partitions matched points into consecutive windows covering the
// full observed time range. Every window in the range is present, empty or
// not. When cumulative is set each bin also contains all points from earlier
// bins. Points with unparseable timestamps go to no bin; the skip count is
// returned and logged by the caller.
func BinByTime(points []model.GeocodedEntity, window time.Duration, cumulative bool) ([]TimeBin, int) {
	if window <= 0 {
		window = 24 * time.Hour
	}

	type stamped struct {
		at    time.Time
		point model.GeocodedEntity
	}
	var valid []stamped
	skipped := 0
	for _, p := range points {
		if !p.Matched {
			continue
		}
		at, ok := parseRecordTime(p.RecordTime)
		if !ok {
			skipped++
			continue
		}
		valid = append(valid, stamped{at: at, point: p})
	}
	if len(valid) == 0 {
		return nil, skipped
	}

	minAt, maxAt := valid[0].at, valid[0].at
	for _, s := range valid[1:] {
		if s.at.Before(minAt) {
			minAt = s.at
		}
		if s.at.After(maxAt) {
			maxAt = s.at
		}
	}

	start := minAt.Truncate(window)
	var bins []TimeBin
	for t := start; !t.After(maxAt); t = t.Add(window) {
		bins = append(bins, TimeBin{Start: t, End: t.Add(window)})
	}

	for _, s := range valid {
		idx := int(s.at.Sub(start) / window)
		bins[idx].Points = append(bins[idx].Points, s.point)
	}

	if cumulative {
		for i := 1; i < len(bins); i++ {
			bins[i].Points = append(append([]model.GeocodedEntity{}, bins[i-1].Points...), bins[i].Points...)
		}
	}

	if skipped > 0 {
		zap.L().Warn("points with unparseable timestamps skipped", zap.Int("skipped", skipped))
	}
	return bins, skipped
}
