package gesture

// Smoother is the exponential position filter. State is the last emitted
// position, owned by the execution worker and persisting across commands.
type Smoother struct {
	lastX int
	lastY int
}

// Apply blends the target position against the last emitted one with
// alpha = 1 - factor. A factor <= 0 disables smoothing: the target passes
// through unchanged, but the last emitted position still tracks it so
// re-enabling smoothing mid-stream resumes from a sane anchor.
func (s *Smoother) Apply(x, y int, factor float64) (int, int) {
	if factor <= 0 {
		s.lastX, s.lastY = x, y
		return x, y
	}

	alpha := 1.0 - factor
	sx := int(alpha*float64(x) + (1-alpha)*float64(s.lastX))
	sy := int(alpha*float64(y) + (1-alpha)*float64(s.lastY))
	s.lastX, s.lastY = sx, sy
	return sx, sy
}
