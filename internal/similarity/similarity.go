// Package similarity scores face embeddings against each other.
package similarity

import (
	"fmt"
	"math"

	"github.com/your-org/suspectwatch/internal/config"
)

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
// Returns 0 when the lengths differ or either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanDistance returns sqrt(sum((a_i-b_i)^2)), or +Inf when the lengths differ.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Mode selects the scoring formula.
type Mode string

const (
	// ModeCombined blends normalized Euclidean distance and cosine similarity.
	ModeCombined Mode = "combined"
	// ModeCosine scores on cosine similarity alone.
	ModeCosine Mode = "cosine"
)

// Weights holds the constants of the combined heuristic.
type Weights struct {
	EuclideanThreshold  float64 // distance mapped to a normalized score of 0
	EuclideanCutoff     float64 // normalized distance above which the far weight applies
	EuclideanWeightFar  float64
	EuclideanWeightNear float64
	CosineWeight        float64
}

// DefaultWeights returns the constants the mobile client shipped with.
func DefaultWeights() Weights {
	return Weights{
		EuclideanThreshold:  120,
		EuclideanCutoff:     0.2,
		EuclideanWeightFar:  1.0,
		EuclideanWeightNear: 3.0,
		CosineWeight:        3.0,
	}
}

// WeightsFromConfig maps the scoring section of the config onto Weights.
func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	return Weights{
		EuclideanThreshold:  cfg.EuclideanThreshold,
		EuclideanCutoff:     cfg.EuclideanCutoff,
		EuclideanWeightFar:  cfg.EuclideanWeightFar,
		EuclideanWeightNear: cfg.EuclideanWeightNear,
		CosineWeight:        cfg.CosineWeight,
	}
}

// NormalizeEuclidean maps a distance onto [0,1] where 1 means identical.
func NormalizeEuclidean(distance, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return 1 - math.Min(distance/threshold, 1)
}

// AdjustCosine maps cosine similarity from [-1,1] onto [0,1].
func AdjustCosine(cosine float64) float64 {
	return (cosine + 1) / 2
}

// CombinedPercent returns the weighted match percentage (0-100).
func CombinedPercent(euclidean, cosine float64, w Weights) float64 {
	normEuclidean := NormalizeEuclidean(euclidean, w.EuclideanThreshold)
	adjCosine := AdjustCosine(cosine)

	euclideanWeight := w.EuclideanWeightNear
	if normEuclidean > w.EuclideanCutoff {
		euclideanWeight = w.EuclideanWeightFar
	}

	total := euclideanWeight + w.CosineWeight
	if total <= 0 {
		return 0
	}

	avg := (normEuclidean*euclideanWeight + adjCosine*w.CosineWeight) / total
	return avg * 100
}

// Result is the outcome of comparing two embeddings.
type Result struct {
	Cosine    float64 `json:"cosine"`
	Euclidean float64 `json:"euclidean"`
	Percent   float64 `json:"percent"`
}

// Scorer turns a pair of embeddings into a match percentage.
type Scorer struct {
	Mode    Mode
	Weights Weights
}

// NewScorer builds a Scorer from config.
func NewScorer(cfg config.ScoringConfig) (*Scorer, error) {
	mode := Mode(cfg.Mode)
	switch mode {
	case ModeCombined, ModeCosine:
	case "":
		mode = ModeCombined
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", cfg.Mode)
	}
	return &Scorer{Mode: mode, Weights: WeightsFromConfig(cfg)}, nil
}

// Score compares a and b. Euclidean is reported as +Inf on a length mismatch
// and is serialized by callers, so Percent is the value to rank on.
func (s *Scorer) Score(a, b []float32) Result {
	cos := CosineSimilarity(a, b)
	dist := EuclideanDistance(a, b)

	var pct float64
	switch s.Mode {
	case ModeCosine:
		pct = cos * 100
	default:
		pct = CombinedPercent(dist, cos, s.Weights)
	}

	return Result{Cosine: cos, Euclidean: dist, Percent: pct}
}
