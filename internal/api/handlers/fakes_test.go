package handlers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/internal/storage"
)

type memStore struct {
	mu        sync.Mutex
	suspects  map[uuid.UUID]*models.Suspect
	docs      map[uuid.UUID]*models.Document
	sightings []models.Sighting
	lastQuery storage.SightingFilter
	pingErr   error
}

func newMemStore() *memStore {
	return &memStore{
		suspects: make(map[uuid.UUID]*models.Suspect),
		docs:     make(map[uuid.UUID]*models.Document),
	}
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *memStore) CreateSuspect(ctx context.Context, s *models.Suspect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.suspects[s.ID] = &cp
	return nil
}

func (m *memStore) GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSuspects(ctx context.Context, limit, offset int) ([]models.Suspect, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Suspect
	for _, s := range m.suspects {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memStore) UpdateSuspect(ctx context.Context, s *models.Suspect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.suspects[s.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Name, cur.Age, cur.Sex = s.Name, s.Age, s.Sex
	cur.Latitude, cur.Longitude = s.Latitude, s.Longitude
	cur.Reason, cur.Agency = s.Reason, s.Agency
	return nil
}

func (m *memStore) DeleteSuspect(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suspects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.suspects, id)
	return nil
}

func (m *memStore) SetSuspectPhoto(ctx context.Context, id uuid.UUID, photoKey, thumbnailKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.PhotoKey, s.ThumbnailKey = photoKey, thumbnailKey
	return nil
}

func (m *memStore) SetSuspectEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Embedding = embedding
	s.Score = nil
	return nil
}

func (m *memStore) SetSuspectScore(ctx context.Context, id uuid.UUID, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suspects[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Score = &score
	return nil
}

func (m *memStore) ListSuspectEmbeddings(ctx context.Context) ([]models.Suspect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Suspect
	for _, s := range m.suspects {
		if s.HasEmbedding() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) NearestSuspects(ctx context.Context, embedding []float32, limit int) ([]models.Suspect, error) {
	all, _ := m.ListSuspectEmbeddings(ctx)
	var out []models.Suspect
	for _, s := range all {
		if len(s.Embedding) == len(embedding) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateDocument(ctx context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, col models.Collection, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Collection != col {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDocuments(ctx context.Context, col models.Collection) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		if d.Collection == col {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) UpdateDocument(ctx context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[d.ID]
	if !ok || cur.Collection != d.Collection {
		return storage.ErrNotFound
	}
	cur.Title = d.Title
	cur.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) DeleteDocument(ctx context.Context, col models.Collection, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Collection != col {
		return storage.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memStore) QuerySightings(ctx context.Context, f storage.SightingFilter) ([]models.Sighting, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = f
	var out []models.Sighting
	for _, s := range m.sightings {
		if f.DeviceID != "" && s.DeviceID != f.DeviceID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memObjects) Ping(ctx context.Context) error { return nil }

func (m *memObjects) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjects) GetObject(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, models.NewError(models.KindNotFound, "object "+key)
	}
	return data, nil
}

func (m *memObjects) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PresignedURL(ctx context.Context, key string) (string, error) {
	return "http://minio.test/" + key, nil
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type memPublisher struct {
	mu           sync.Mutex
	observations []models.Observation
	controls     []queue.ControlMessage
	err          error
}

func (p *memPublisher) PublishObservation(ctx context.Context, obs models.Observation) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observations = append(p.observations, obs)
	return nil
}

func (p *memPublisher) PublishControl(msg queue.ControlMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.controls = append(p.controls, msg)
	return nil
}

func (p *memPublisher) Ping() error {
	if p.err != nil {
		return p.err
	}
	return nil
}

var errBoom = errors.New("boom")
