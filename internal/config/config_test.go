package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/your-org/suspectwatch/internal/pose"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Scoring.Mode != "combined" {
		t.Errorf("expected combined scoring mode, got %q", cfg.Scoring.Mode)
	}
	if cfg.Scoring.EuclideanThreshold != 120 {
		t.Errorf("expected euclidean threshold 120, got %v", cfg.Scoring.EuclideanThreshold)
	}
	if cfg.Scoring.EuclideanCutoff != 0.2 {
		t.Errorf("expected cutoff 0.2, got %v", cfg.Scoring.EuclideanCutoff)
	}
	if cfg.Scoring.CosineWeight != 3.0 {
		t.Errorf("expected cosine weight 3, got %v", cfg.Scoring.CosineWeight)
	}
	if cfg.Pose.MaxSavedPoses != 5 {
		t.Errorf("expected 5 saved poses, got %d", cfg.Pose.MaxSavedPoses)
	}
	if cfg.Tracking.ReMatchInterval != 3*time.Second {
		t.Errorf("expected 3s re-match interval, got %v", cfg.Tracking.ReMatchInterval)
	}
}

func TestLoad_ExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
scoring:
  cosine_weight: 0
  euclidean_cutoff: 0
  match_threshold: 0
pose:
  distance_weight: 0
tracking:
  min_hits: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scoring.CosineWeight != 0 {
		t.Errorf("cosine_weight = %v, want 0", cfg.Scoring.CosineWeight)
	}
	if cfg.Scoring.EuclideanCutoff != 0 {
		t.Errorf("euclidean_cutoff = %v, want 0", cfg.Scoring.EuclideanCutoff)
	}
	if cfg.Scoring.MatchThreshold != 0 {
		t.Errorf("match_threshold = %v, want 0", cfg.Scoring.MatchThreshold)
	}
	if cfg.Pose.DistanceWeight != 0 {
		t.Errorf("distance_weight = %v, want 0", cfg.Pose.DistanceWeight)
	}
	if cfg.Tracking.MinHits != 0 {
		t.Errorf("min_hits = %d, want 0", cfg.Tracking.MinHits)
	}
	// keys absent from the file keep their defaults
	if cfg.Scoring.EuclideanThreshold != 120 || cfg.Scoring.EuclideanWeightNear != 3 {
		t.Errorf("defaults lost: %+v", cfg.Scoring)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "scoring:\n  mode: combined\n")
	t.Setenv("SW_SCORING_MODE", "cosine")
	t.Setenv("SW_MATCH_THRESHOLD", "82.5")
	t.Setenv("SW_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scoring.Mode != "cosine" {
		t.Errorf("expected cosine mode from env, got %q", cfg.Scoring.Mode)
	}
	if cfg.Scoring.MatchThreshold != 82.5 {
		t.Errorf("expected threshold 82.5, got %v", cfg.Scoring.MatchThreshold)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.Server.APIKey)
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeConfig(t, "scoring:\n  mode: manhattan\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown scoring mode")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "fields",
			cfg:  DatabaseConfig{Host: "db", Port: 5432, Name: "sw", User: "u", Password: "p"},
			want: "postgres://u:p@db:5432/sw?sslmode=disable",
		},
		{
			name: "url wins",
			cfg:  DatabaseConfig{Host: "db", URL: "postgres://x@y/z"},
			want: "postgres://x@y/z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"distance weight above 1", func(c *Config) { c.Pose.DistanceWeight = 1.5 }},
		{"negative cosine weight", func(c *Config) { c.Scoring.CosineWeight = -1 }},
		{"cutoff above 1", func(c *Config) { c.Scoring.EuclideanCutoff = 2 }},
		{"zero saved poses", func(c *Config) { c.Pose.MaxSavedPoses = 0 }},
		{"huge heatmap", func(c *Config) { c.Pose.HeatmapSize = pose.MaxHeatmapSize + 1 }},
		{"zero workers", func(c *Config) { c.Worker.Count = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
