package dictation

// waveform heights stay in a narrow band so the visualization reads as a
// gentle pulse rather than a spiky meter.
const (
	minBarHeight = 3.0
	barHeadroom  = 5.0
	maxBarHeight = 10.0
)

// Waveform buckets a frequency-domain sample array into a fixed number of
// bars. Each bar averages its bucket and maps the normalized average
// through a squared curve into the height band.
func Waveform(samples []byte, bars int) []float64 {
	if bars <= 0 {
		return nil
	}

	heights := make([]float64, bars)
	if len(samples) == 0 {
		for i := range heights {
			heights[i] = minBarHeight
		}
		return heights
	}

	bucket := len(samples) / bars
	if bucket < 1 {
		bucket = 1
	}

	for i := 0; i < bars; i++ {
		start := i * bucket
		if start >= len(samples) {
			heights[i] = minBarHeight
			continue
		}
		end := start + bucket
		if end > len(samples) {
			end = len(samples)
		}

		var sum float64
		for _, sample := range samples[start:end] {
			sum += float64(sample)
		}
		normalized := sum / float64(end-start) / 255.0

		height := minBarHeight + normalized*normalized*barHeadroom
		if height > maxBarHeight {
			height = maxBarHeight
		}
		heights[i] = height
	}
	return heights
}
