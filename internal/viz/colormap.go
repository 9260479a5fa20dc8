package viz

// colorStop anchors the heat ramp at a normalized density.
type colorStop struct {
	at      float64
	r, g, b float64
}

// heatStops run dark blue through red to pale yellow, the usual heat ramp.
var heatStops = []colorStop{
	{0.00, 0.05, 0.05, 0.30},
	{0.25, 0.20, 0.00, 0.60},
	{0.50, 0.80, 0.10, 0.10},
	{0.75, 1.00, 0.55, 0.00},
	{1.00, 1.00, 0.95, 0.60},
}

// heatColor maps a normalized density in [0, 1] to an RGB triple. The alpha
// ramp is handled by the caller so zero-density cells stay transparent.
func heatColor(v float64) (r, g, b float64) {
	if v <= 0 {
		s := heatStops[0]
		return s.r, s.g, s.b
	}
	if v >= 1 {
		s := heatStops[len(heatStops)-1]
		return s.r, s.g, s.b
	}
	for i := 1; i < len(heatStops); i++ {
		if v <= heatStops[i].at {
			lo, hi := heatStops[i-1], heatStops[i]
			t := (v - lo.at) / (hi.at - lo.at)
			return lo.r + t*(hi.r-lo.r),
				lo.g + t*(hi.g-lo.g),
				lo.b + t*(hi.b-lo.b)
		}
	}
	s := heatStops[len(heatStops)-1]
	return s.r, s.g, s.b
}
