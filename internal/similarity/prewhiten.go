package similarity

import "math"

// Prewhiten standardizes raw pixel values the way FaceNet-style models expect:
// subtract the mean and divide by max(std, 1/sqrt(n)). Returns nil for empty input.
func Prewhiten(pixels []float64) []float32 {
	n := len(pixels)
	if n == 0 {
		return nil
	}

	var mean float64
	for _, p := range pixels {
		mean += p
	}
	mean /= float64(n)

	var sq float64
	for _, p := range pixels {
		d := p - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))
	std = math.Max(std, 1/math.Sqrt(float64(n)))

	out := make([]float32, n)
	for i, p := range pixels {
		out[i] = float32((p - mean) / std)
	}
	return out
}
