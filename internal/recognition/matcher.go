package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/index"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/observability"
	"github.com/your-org/suspectwatch/internal/similarity"
)

// SuspectSource loads suspect embeddings for matching.
type SuspectSource interface {
	ListSuspectEmbeddings(ctx context.Context) ([]models.Suspect, error)
	NearestSuspects(ctx context.Context, embedding []float32, limit int) ([]models.Suspect, error)
}

// Match is one scored suspect.
type Match struct {
	SuspectID uuid.UUID
	Name      string
	similarity.Result
	Matched bool // Percent reached the match threshold
}

// Matcher ranks suspects against a face embedding.
type Matcher struct {
	scorer    *similarity.Scorer
	index     *index.SuspectIndex
	source    SuspectSource
	threshold float64
	limit     int
}

func NewMatcher(cfg config.ScoringConfig, source SuspectSource) (*Matcher, error) {
	scorer, err := similarity.NewScorer(cfg)
	if err != nil {
		return nil, models.WrapError(models.KindModelSetup, "scorer", err)
	}
	limit := cfg.CandidateLimit
	if limit <= 0 {
		limit = 20
	}
	return &Matcher{
		scorer:    scorer,
		index:     index.New(),
		source:    source,
		threshold: cfg.MatchThreshold,
		limit:     limit,
	}, nil
}

func (m *Matcher) Scorer() *similarity.Scorer { return m.scorer }
func (m *Matcher) Index() *index.SuspectIndex { return m.index }
func (m *Matcher) Threshold() float64         { return m.threshold }

// Refresh rebuilds the in-memory index from the source.
func (m *Matcher) Refresh(ctx context.Context) (int, error) {
	suspects, err := m.source.ListSuspectEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load suspects: %w", err)
	}
	n := m.index.Build(suspects)
	observability.IndexedSuspects.Set(float64(n))
	if skipped := len(suspects) - n; skipped > 0 {
		slog.Warn("suspects skipped by index", "skipped", skipped, "dim", m.index.Dim())
	}
	return n, nil
}

// Match scores the nearest suspects and returns them best first. When the
// index cannot serve the query, candidates come from the source instead.
func (m *Matcher) Match(ctx context.Context, embedding []float32) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, models.NewError(models.KindDataConversion, "embedding required")
	}

	start := time.Now()
	var candidates []index.Entry
	if m.index.Len() > 0 && m.index.Dim() == len(embedding) {
		for _, n := range m.index.Search(embedding, m.limit) {
			candidates = append(candidates, n.Entry)
		}
	} else {
		suspects, err := m.source.NearestSuspects(ctx, embedding, m.limit)
		if err != nil {
			return nil, err
		}
		for _, s := range suspects {
			candidates = append(candidates, index.Entry{ID: s.ID, Name: s.Name, Embedding: s.Embedding})
		}
	}
	observability.ScoringDuration.WithLabelValues("candidates").Observe(time.Since(start).Seconds())

	start = time.Now()
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		res := m.scorer.Score(embedding, c.Embedding)
		matches = append(matches, Match{
			SuspectID: c.ID,
			Name:      c.Name,
			Result:    res,
			Matched:   res.Percent >= m.threshold,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Percent > matches[j].Percent
	})
	observability.ScoringDuration.WithLabelValues("score").Observe(time.Since(start).Seconds())

	return matches, nil
}

// Best returns the top match when it reaches the threshold, nil otherwise.
func (m *Matcher) Best(ctx context.Context, embedding []float32) (*Match, error) {
	matches, err := m.Match(ctx, embedding)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 || !matches[0].Matched {
		return nil, nil
	}
	return &matches[0], nil
}
