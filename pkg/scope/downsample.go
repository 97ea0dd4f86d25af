package scope

// downsample decimates the trace points to at most maxPoints for display.
// Destination-based: reuses dst when it has sufficient capacity, otherwise
// allocates. Returns the destination slice.
func downsample(dst []tracePoint, points []tracePoint, maxPoints int) []tracePoint {
	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]tracePoint, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]tracePoint, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)

	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(points) {
			p := points[idx]
			// A decimated-away gap or dropout must survive on the kept
			// point, otherwise the display would draw through it.
			end := int(float64(i+1) * step)
			if end > len(points) {
				end = len(points)
			}
			for _, q := range points[idx:end] {
				if q.gap {
					p.gap = true
				}
				if !q.valid {
					p.valid = false
				}
			}
			dst = append(dst, p)
		}
	}

	return dst
}
