package gesture

// Predictor extrapolates near-future cursor position from a short rolling
// window of samples, masking network and processing latency for move
// commands. It is only ever invoked from the execution worker, so no locking.

const (
	// sequenceLength bounds the position history window
	sequenceLength = 5

	// predictionHorizon is how far ahead to extrapolate, in seconds
	predictionHorizon = 0.020

	// minDeltaT guards velocity computation against zero or out-of-order
	// timestamps
	minDeltaT = 1e-9
)

type positionSample struct {
	x, y float64
	t    float64
}

type velocitySample struct {
	vx, vy float64
}

// Predictor holds bounded position and velocity history for one pipeline.
type Predictor struct {
	screenWidth  int
	screenHeight int
	positions    []positionSample // newest last, at most sequenceLength
	velocities   []velocitySample // at most sequenceLength-1
}

// NewPredictor creates a predictor clamping its output to the given screen.
func NewPredictor(screenWidth, screenHeight int) *Predictor {
	return &Predictor{
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		positions:    make([]positionSample, 0, sequenceLength),
		velocities:   make([]velocitySample, 0, sequenceLength-1),
	}
}

// Predict records the sample and returns the latency-compensated position.
// With fewer than two samples, or a non-positive time delta between the two
// newest samples, the input is returned unchanged.
func (p *Predictor) Predict(x, y, timestamp float64) (float64, float64) {
	p.appendPosition(positionSample{x: x, y: y, t: timestamp})

	if len(p.positions) < 2 {
		return x, y
	}

	prev := p.positions[len(p.positions)-2]
	curr := p.positions[len(p.positions)-1]
	dt := curr.t - prev.t
	if dt <= minDeltaT {
		return x, y
	}

	p.appendVelocity(velocitySample{
		vx: (curr.x - prev.x) / dt,
		vy: (curr.y - prev.y) / dt,
	})

	avgVX, avgVY := p.weightedVelocity()

	px := x + avgVX*predictionHorizon
	py := y + avgVY*predictionHorizon

	px = clampF(px, 0, float64(p.screenWidth))
	py = clampF(py, 0, float64(p.screenHeight))
	return px, py
}

// weightedVelocity averages the velocity window with recency weights
// 1, 2, ..., n (newest heaviest), normalized to sum 1.
func (p *Predictor) weightedVelocity() (float64, float64) {
	var sum float64
	for i := range p.velocities {
		sum += float64(i + 1)
	}

	var vx, vy float64
	for i, v := range p.velocities {
		w := float64(i+1) / sum
		vx += v.vx * w
		vy += v.vy * w
	}
	return vx, vy
}

func (p *Predictor) appendPosition(s positionSample) {
	if len(p.positions) == sequenceLength {
		copy(p.positions, p.positions[1:])
		p.positions = p.positions[:sequenceLength-1]
	}
	p.positions = append(p.positions, s)
}

func (p *Predictor) appendVelocity(v velocitySample) {
	if len(p.velocities) == sequenceLength-1 {
		copy(p.velocities, p.velocities[1:])
		p.velocities = p.velocities[:sequenceLength-2]
	}
	p.velocities = append(p.velocities, v)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
