package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-org/suspectwatch/internal/pose"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Pose     PoseConfig     `yaml:"pose"`
	Tracking TrackingConfig `yaml:"tracking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
	// URL overrides the individual fields when set.
	URL string `yaml:"url"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Bucket     string        `yaml:"bucket"`
	UseSSL     bool          `yaml:"use_ssl"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// MQTTConfig configures the optional edge-device bridge. An empty Broker
// disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// ScoringConfig carries every constant of the face match heuristic.
type ScoringConfig struct {
	Mode                string  `yaml:"mode"` // combined | cosine
	EuclideanThreshold  float64 `yaml:"euclidean_threshold"`
	EuclideanCutoff     float64 `yaml:"euclidean_cutoff"`
	EuclideanWeightFar  float64 `yaml:"euclidean_weight_far"`
	EuclideanWeightNear float64 `yaml:"euclidean_weight_near"`
	CosineWeight        float64 `yaml:"cosine_weight"`
	MatchThreshold      float64 `yaml:"match_threshold"` // percent, 0-100
	CandidateLimit      int     `yaml:"candidate_limit"`
}

type PoseConfig struct {
	MaxSavedPoses  int           `yaml:"max_saved_poses"`
	DistanceWeight float64       `yaml:"distance_weight"`
	HeatmapSize    int           `yaml:"heatmap_size"`
	SessionIdle    time.Duration `yaml:"session_idle"` // sessions unused this long are dropped
}

type TrackingConfig struct {
	MaxAge          int           `yaml:"max_age"`
	MinHits         int           `yaml:"min_hits"`
	ReMatchInterval time.Duration `yaml:"re_match_interval"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"` // device trackers unused this long are dropped
}

type WorkerConfig struct {
	Count             int           `yaml:"count"`
	MetricsPort       int           `yaml:"metrics_port"`
	IndexRefresh      time.Duration `yaml:"index_refresh"`
	SnapshotRetention int           `yaml:"snapshot_retention"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a config populated only with defaults and env overrides.
// Used by the CLI when no config file is given.
func Default() *Config {
	cfg := defaults()
	applyEnvOverrides(cfg)
	return cfg
}

// Validate rejects settings the scoring and pose code cannot work with.
func (c *Config) Validate() error {
	switch c.Scoring.Mode {
	case "combined", "cosine":
	default:
		return fmt.Errorf("scoring.mode must be combined or cosine, got %q", c.Scoring.Mode)
	}
	if c.Scoring.EuclideanThreshold <= 0 {
		return fmt.Errorf("scoring.euclidean_threshold must be positive")
	}
	if c.Scoring.MatchThreshold < 0 || c.Scoring.MatchThreshold > 100 {
		return fmt.Errorf("scoring.match_threshold must be within 0-100")
	}
	if c.Scoring.EuclideanCutoff < 0 || c.Scoring.EuclideanCutoff > 1 {
		return fmt.Errorf("scoring.euclidean_cutoff must be within 0-1")
	}
	if c.Scoring.EuclideanWeightFar < 0 || c.Scoring.EuclideanWeightNear < 0 || c.Scoring.CosineWeight < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	if c.Scoring.CandidateLimit <= 0 {
		return fmt.Errorf("scoring.candidate_limit must be positive")
	}
	if c.Pose.DistanceWeight < 0 || c.Pose.DistanceWeight > 1 {
		return fmt.Errorf("pose.distance_weight must be within 0-1")
	}
	if c.Pose.MaxSavedPoses <= 0 {
		return fmt.Errorf("pose.max_saved_poses must be positive")
	}
	if c.Pose.HeatmapSize <= 0 || c.Pose.HeatmapSize > pose.MaxHeatmapSize {
		return fmt.Errorf("pose.heatmap_size must be within 1-%d", pose.MaxHeatmapSize)
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be positive")
	}
	if c.Worker.IndexRefresh <= 0 || c.Worker.CleanupInterval <= 0 {
		return fmt.Errorf("worker.index_refresh and worker.cleanup_interval must be positive")
	}
	return nil
}

// defaults returns the baseline config. Load decodes YAML on top of it, so a
// key present in the file wins even when its value is zero.
func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Port: 5432, MaxConns: 20},
		MinIO:    MinIOConfig{Bucket: "suspectwatch", PresignTTL: time.Hour},
		MQTT:     MQTTConfig{Topic: "suspectwatch/observations"},
		Scoring: ScoringConfig{
			Mode:                "combined",
			EuclideanThreshold:  120,
			EuclideanCutoff:     0.2,
			EuclideanWeightFar:  1.0,
			EuclideanWeightNear: 3.0,
			CosineWeight:        3.0,
			MatchThreshold:      70,
			CandidateLimit:      20,
		},
		Pose: PoseConfig{
			MaxSavedPoses:  5,
			DistanceWeight: 0.5,
			HeatmapSize:    96,
			SessionIdle:    30 * time.Minute,
		},
		Tracking: TrackingConfig{
			MaxAge:          30,
			MinHits:         1,
			ReMatchInterval: 3 * time.Second,
			IdleTimeout:     10 * time.Minute,
		},
		Worker: WorkerConfig{
			Count:             4,
			MetricsPort:       8082,
			IndexRefresh:      time.Minute,
			SnapshotRetention: 500,
			CleanupInterval:   10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SW_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("SW_DB_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SW_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SW_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SW_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SW_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SW_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("SW_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("SW_SCORING_MODE"); v != "" {
		cfg.Scoring.Mode = v
	}
	if v := os.Getenv("SW_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.MatchThreshold = f
		}
	}
	if v := os.Getenv("SW_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Count = n
		}
	}
	if v := os.Getenv("SW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
