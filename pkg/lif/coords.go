package lif

import "time"

// applyTimestamps replaces the linear T coordinates with elapsed seconds
// from the timestamp list. Timestamps are stored per frame in memory
// order, where frames span every axis outside the two innermost ones.
func applyTimestamps(axes []Axis, stamps []time.Time) {
	t := -1
	for i, a := range axes {
		if a.Label == "T" {
			t = i
			break
		}
	}
	if t < 0 || len(stamps) == 0 || axes[t].Size <= 0 {
		return
	}
	size := axes[t].Size

	stride := -1
	if frames := frameAxes(axes); t < len(frames) {
		n := int64(1)
		for _, a := range frames {
			n *= int64(a.Size)
		}
		if n == int64(len(stamps)) {
			stride = 1
			for _, a := range frames[t+1:] {
				stride *= a.Size
			}
		}
	}
	if stride < 0 {
		if len(stamps)%size != 0 {
			return
		}
		stride = len(stamps) / size
	}

	values := make([]float64, size)
	for i := range values {
		values[i] = stamps[i*stride].Sub(stamps[0]).Seconds()
	}
	axes[t].values = values
}

// frameAxes returns the axes that index whole frames: everything outside
// the two innermost non-sample axes.
func frameAxes(axes []Axis) []Axis {
	n := len(axes)
	if n > 0 && axes[n-1].Label == "S" {
		n--
	}
	if n <= 2 {
		return nil
	}
	return axes[:n-2]
}

func coordsOf(axes []Axis) map[string][]float64 {
	out := make(map[string][]float64, len(axes))
	for _, a := range axes {
		if c := a.Coords(); c != nil {
			out[a.Label] = c
		}
	}
	return out
}
