package index

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/models"
)

// HNSW parameters sized for face embeddings (128 to 512 dims).
const (
	MaxNeighbors = 16
	// SearchMultiplier widens the candidate pool so exact rescoring has
	// enough neighbors to reorder.
	SearchMultiplier = 3
)

// Entry is one indexed suspect.
type Entry struct {
	ID        uuid.UUID
	Name      string
	Embedding []float32
}

// Neighbor is a search hit with its cosine distance from the query.
type Neighbor struct {
	Entry
	Distance float32
}

// SuspectIndex is an in-memory HNSW graph over suspect embeddings.
// All indexed vectors share one dimension: the first one added fixes it,
// and entries of any other dimension are skipped.
type SuspectIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	entries map[string]Entry
	dim     int
}

func New() *SuspectIndex {
	return &SuspectIndex{entries: make(map[string]Entry)}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = MaxNeighbors
	g.Ml = 1.0 / float64(MaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with suspects that carry an embedding.
// It returns how many were indexed.
func (x *SuspectIndex) Build(suspects []models.Suspect) int {
	entries := make(map[string]Entry, len(suspects))
	dim := 0
	for _, s := range suspects {
		if !s.HasEmbedding() {
			continue
		}
		if dim == 0 {
			dim = len(s.Embedding)
		}
		if len(s.Embedding) != dim {
			continue
		}
		entries[s.ID.String()] = Entry{ID: s.ID, Name: s.Name, Embedding: s.Embedding}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = entries
	x.dim = dim
	x.rebuild()
	return len(entries)
}

// Upsert adds or replaces a suspect. It reports false when the embedding is
// empty or does not match the index dimension; any earlier entry for the
// suspect is dropped in that case.
func (x *SuspectIndex) Upsert(s models.Suspect) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	key := s.ID.String()
	_, existed := x.entries[key]

	mismatch := x.dim != 0 && len(s.Embedding) != x.dim
	// The only indexed suspect may change the index dimension.
	if mismatch && existed && len(x.entries) == 1 {
		mismatch = false
	}
	if !s.HasEmbedding() || mismatch {
		if existed {
			x.removeLocked(key)
		}
		return false
	}

	x.dim = len(s.Embedding)
	x.entries[key] = Entry{ID: s.ID, Name: s.Name, Embedding: s.Embedding}

	if existed || x.graph == nil {
		x.rebuild()
	} else {
		x.graph.Add(hnsw.MakeNode(key, s.Embedding))
	}
	return true
}

// Remove drops a suspect from the index.
func (x *SuspectIndex) Remove(id uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()

	key := id.String()
	if _, ok := x.entries[key]; !ok {
		return
	}
	x.removeLocked(key)
}

func (x *SuspectIndex) removeLocked(key string) {
	delete(x.entries, key)
	if len(x.entries) == 0 {
		x.dim = 0
	}
	x.rebuild()
}

// rebuild recreates the graph from entries. Callers hold the write lock.
func (x *SuspectIndex) rebuild() {
	if len(x.entries) == 0 {
		x.graph = nil
		return
	}
	g := newGraph()
	for key, e := range x.entries {
		g.Add(hnsw.MakeNode(key, e.Embedding))
	}
	x.graph = g
}

// Search returns up to k suspects nearest to query, closest first.
// A query of the wrong dimension yields no results.
func (x *SuspectIndex) Search(query []float32, k int) []Neighbor {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || k <= 0 || len(query) != x.dim {
		return nil
	}

	nodes := x.graph.Search(query, k*SearchMultiplier)
	out := make([]Neighbor, 0, k)
	for _, n := range nodes {
		e, ok := x.entries[n.Key]
		if !ok {
			continue
		}
		out = append(out, Neighbor{Entry: e, Distance: hnsw.CosineDistance(query, e.Embedding)})
	}
	sortNeighbors(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Len returns the number of indexed suspects.
func (x *SuspectIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dim returns the embedding dimension of the index, 0 when empty.
func (x *SuspectIndex) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Distance < ns[j].Distance })
}
