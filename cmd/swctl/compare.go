package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/imaging"
	"github.com/your-org/suspectwatch/internal/similarity"
)

// faceInputSize is the side of the square crop fed to FaceNet-style models.
const faceInputSize = 160

var compareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Score two face embeddings",
	Long: `Score two face embeddings with the service's match heuristic.

Each argument is one of:
  - a comma separated list of numbers (0.12,-0.4,...)
  - a JSON file holding an array of numbers
  - an image file (png, jpg, bmp, webp), turned into pre-whitened pixels

Examples:
  swctl compare 1,0,0 0.9,0.1,0
  swctl compare alice.json probe.json --mode cosine
  swctl compare a.png b.png`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().String("mode", "", "Scoring mode: combined or cosine (default from config)")
	compareCmd.Flags().Float64("threshold", 0, "Match threshold in percent (default from config)")
}

type compareOutput struct {
	Cosine    float64  `json:"cosine"`
	Euclidean *float64 `json:"euclidean"`
	Percent   float64  `json:"percent"`
	Matched   bool     `json:"matched"`
	Mode      string   `json:"mode"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Scoring.Mode = mode
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold > 0 {
		cfg.Scoring.MatchThreshold = threshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := loadVector(args[0])
	if err != nil {
		return err
	}
	b, err := loadVector(args[1])
	if err != nil {
		return err
	}

	scorer, err := similarity.NewScorer(cfg.Scoring)
	if err != nil {
		return err
	}
	res := scorer.Score(a, b)

	out := compareOutput{
		Cosine:  res.Cosine,
		Percent: res.Percent,
		Matched: res.Percent >= cfg.Scoring.MatchThreshold,
		Mode:    string(scorer.Mode),
	}
	if !math.IsInf(res.Euclidean, 0) {
		out.Euclidean = &res.Euclidean
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MODE\t%s\n", out.Mode)
	fmt.Fprintf(w, "COSINE\t%.4f\n", out.Cosine)
	if out.Euclidean != nil {
		fmt.Fprintf(w, "EUCLIDEAN\t%.4f\n", *out.Euclidean)
	} else {
		fmt.Fprintf(w, "EUCLIDEAN\tn/a (length mismatch)\n")
	}
	fmt.Fprintf(w, "PERCENT\t%.2f\n", out.Percent)
	fmt.Fprintf(w, "MATCHED\t%t\n", out.Matched)
	return w.Flush()
}

// loadVector reads a vector from a literal, a JSON file or an image.
func loadVector(arg string) ([]float32, error) {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json":
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		var v []float32
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", arg, err)
		}
		return v, nil
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp":
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		img, _, err := imaging.Decode(data)
		if err != nil {
			return nil, err
		}
		return similarity.Prewhiten(imaging.Pixels(img, faceInputSize)), nil
	}
	return parseVector(arg)
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	v := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		v = append(v, float32(f))
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("empty vector %q", s)
	}
	return v, nil
}
