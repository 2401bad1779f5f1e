package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/pose"
)

var poseCmd = &cobra.Command{
	Use:   "pose <current.json> <saved.json>...",
	Short: "Score a pose against one or more saved poses",
	Long: `Score a pose against saved poses. Each file holds a JSON array of
joints: [{"x": 0.5, "y": 0.1}, ...] in the same joint order.

Examples:
  swctl pose live.json ref1.json ref2.json
  swctl pose live.json ref.json --distance-weight 0.7`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPose,
}

func init() {
	rootCmd.AddCommand(poseCmd)
	poseCmd.Flags().Float64("distance-weight", -1, "Weight of the joint distance term, 0-1 (default from config)")
}

type poseScore struct {
	File  string  `json:"file"`
	Score float64 `json:"score"`
}

func runPose(cmd *cobra.Command, args []string) error {
	weight := config.Default().Pose.DistanceWeight
	if w, _ := cmd.Flags().GetFloat64("distance-weight"); w >= 0 {
		if w > 1 {
			return fmt.Errorf("distance-weight must be within 0-1")
		}
		weight = w
	}

	current, err := loadPose(args[0])
	if err != nil {
		return err
	}

	scores := make([]poseScore, 0, len(args)-1)
	for _, path := range args[1:] {
		saved, err := loadPose(path)
		if err != nil {
			return err
		}
		scores = append(scores, poseScore{File: path, Score: pose.Compare(current, saved, weight)})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SAVED\tSCORE")
	for _, s := range scores {
		fmt.Fprintf(w, "%s\t%.4f\n", s.File, s.Score)
	}
	return w.Flush()
}

func loadPose(path string) (pose.Pose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var p pose.Pose
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}
