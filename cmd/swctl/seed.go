package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/internal/storage"
	"github.com/your-org/suspectwatch/pkg/dto"
)

var seedCmd = &cobra.Command{
	Use:   "seed <suspects.json>",
	Short: "Bulk-load suspects",
	Long: `Load suspects from a JSON array of suspect records, the same shape
POST /v1/suspects accepts.

By default records go through the API, which keeps every service's index
in sync. With --direct they are written to Postgres using the service
config, and a reload is broadcast over NATS afterwards.

Examples:
  swctl seed suspects.json --api http://localhost:8080 --api-key $SW_API_KEY
  swctl seed suspects.json --direct --config configs/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("api", "http://localhost:8080", "API base URL")
	seedCmd.Flags().String("api-key", os.Getenv("SW_API_KEY"), "API key")
	seedCmd.Flags().Bool("direct", false, "Write to Postgres instead of the API")
	seedCmd.Flags().String("config", "configs/config.yaml", "Service config for --direct")
}

type seedSummary struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var records []dto.CreateSuspectRequest
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var create func(context.Context, dto.CreateSuspectRequest) error
	var finish func(context.Context) error

	if direct, _ := cmd.Flags().GetBool("direct"); direct {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		db, err := storage.NewPostgresStore(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		create = func(ctx context.Context, r dto.CreateSuspectRequest) error {
			return db.CreateSuspect(ctx, suspectFromRequest(r))
		}
		finish = func(context.Context) error { return broadcastReload(cfg.NATS.URL) }
	} else {
		base, _ := cmd.Flags().GetString("api")
		key, _ := cmd.Flags().GetString("api-key")
		client := &apiClient{base: strings.TrimRight(base, "/"), key: key, http: &http.Client{Timeout: 30 * time.Second}}
		create = client.createSuspect
		finish = func(context.Context) error { return nil }
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Seeding suspects"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	var summary seedSummary
	for i, r := range records {
		if err := create(ctx, r); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("record %d (%s): %v", i, r.Name, err))
		} else {
			summary.Created++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if summary.Created > 0 {
		if err := finish(ctx); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("reload: %v", err))
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("\nCreated %d suspects, %d failed\n", summary.Created, summary.Failed)
	for _, e := range summary.Errors {
		fmt.Fprintln(os.Stderr, "  "+e)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d suspects failed", summary.Failed)
	}
	return nil
}

func suspectFromRequest(r dto.CreateSuspectRequest) *models.Suspect {
	sex := models.Sex(r.Sex)
	if sex == "" {
		sex = models.SexUnknown
	}
	return &models.Suspect{
		Name:      r.Name,
		Age:       r.Age,
		Sex:       sex,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Reason:    r.Reason,
		Agency:    r.Agency,
		Embedding: r.Embedding,
	}
}

func broadcastReload(natsURL string) error {
	if natsURL == "" {
		return nil
	}
	producer, err := queue.NewProducer(natsURL)
	if err != nil {
		return err
	}
	defer producer.Close()
	return producer.PublishControl(queue.ControlMessage{Command: queue.CommandReload})
}

type apiClient struct {
	base string
	key  string
	http *http.Client
}

func (c *apiClient) createSuspect(ctx context.Context, r dto.CreateSuspectRequest) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/suspects", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(msg, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
