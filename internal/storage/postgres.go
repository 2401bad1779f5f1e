package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
)

// ErrNotFound is returned by updates and deletes that touch no row.
var ErrNotFound = models.NewError(models.KindNotFound, "record not found")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Suspects ---

const suspectColumns = `id, name, age, sex, latitude, longitude, reason, agency,
	photo_key, thumbnail_key, embedding, score, scored_at, created_at, updated_at`

func scanSuspect(row pgx.Row) (*models.Suspect, error) {
	var (
		su  models.Suspect
		vec *pgvector.Vector
	)
	err := row.Scan(&su.ID, &su.Name, &su.Age, &su.Sex, &su.Latitude, &su.Longitude,
		&su.Reason, &su.Agency, &su.PhotoKey, &su.ThumbnailKey, &vec,
		&su.Score, &su.ScoredAt, &su.CreatedAt, &su.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		su.Embedding = vec.Slice()
	}
	return &su, nil
}

func (s *PostgresStore) CreateSuspect(ctx context.Context, su *models.Suspect) error {
	su.ID = uuid.New()
	if su.Sex == "" {
		su.Sex = models.SexUnknown
	}
	var vec *pgvector.Vector
	if len(su.Embedding) > 0 {
		v := pgvector.NewVector(su.Embedding)
		vec = &v
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO suspects (id, name, age, sex, latitude, longitude, reason, agency, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`,
		su.ID, su.Name, su.Age, su.Sex, su.Latitude, su.Longitude, su.Reason, su.Agency, vec,
	).Scan(&su.CreatedAt, &su.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create suspect: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	su, err := scanSuspect(s.pool.QueryRow(ctx,
		`SELECT `+suspectColumns+` FROM suspects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get suspect: %w", err)
	}
	return su, nil
}

// ListSuspects returns a page of suspects, newest first, and the total count.
func (s *PostgresStore) ListSuspects(ctx context.Context, limit, offset int) ([]models.Suspect, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suspects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suspects: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+suspectColumns+` FROM suspects ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list suspects: %w", err)
	}
	defer rows.Close()

	var suspects []models.Suspect
	for rows.Next() {
		su, err := scanSuspect(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan suspect: %w", err)
		}
		suspects = append(suspects, *su)
	}
	return suspects, total, rows.Err()
}

// ListSuspectEmbeddings returns every suspect that has an embedding.
func (s *PostgresStore) ListSuspectEmbeddings(ctx context.Context) ([]models.Suspect, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+suspectColumns+` FROM suspects WHERE embedding IS NOT NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list suspect embeddings: %w", err)
	}
	defer rows.Close()

	var suspects []models.Suspect
	for rows.Next() {
		su, err := scanSuspect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suspect: %w", err)
		}
		suspects = append(suspects, *su)
	}
	return suspects, rows.Err()
}

// NearestSuspects orders suspects by pgvector cosine distance to embedding.
// Only suspects whose embedding has the same dimension are considered.
func (s *PostgresStore) NearestSuspects(ctx context.Context, embedding []float32, limit int) ([]models.Suspect, error) {
	if limit <= 0 {
		limit = 20
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT `+suspectColumns+` FROM suspects
		 WHERE embedding IS NOT NULL AND vector_dims(embedding) = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, len(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("nearest suspects: %w", err)
	}
	defer rows.Close()

	var suspects []models.Suspect
	for rows.Next() {
		su, err := scanSuspect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suspect: %w", err)
		}
		suspects = append(suspects, *su)
	}
	return suspects, rows.Err()
}

func (s *PostgresStore) UpdateSuspect(ctx context.Context, su *models.Suspect) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE suspects SET name = $1, age = $2, sex = $3, latitude = $4, longitude = $5,
		 reason = $6, agency = $7, updated_at = now()
		 WHERE id = $8 RETURNING updated_at`,
		su.Name, su.Age, su.Sex, su.Latitude, su.Longitude, su.Reason, su.Agency, su.ID,
	).Scan(&su.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update suspect: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetSuspectPhoto(ctx context.Context, id uuid.UUID, photoKey, thumbnailKey string) error {
	return s.execOne(ctx, "set suspect photo",
		`UPDATE suspects SET photo_key = $1, thumbnail_key = $2, updated_at = now() WHERE id = $3`,
		photoKey, thumbnailKey, id)
}

// SetSuspectEmbedding replaces the cached embedding and clears the stale score.
func (s *PostgresStore) SetSuspectEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return s.execOne(ctx, "set suspect embedding",
		`UPDATE suspects SET embedding = $1, score = NULL, scored_at = NULL, updated_at = now() WHERE id = $2`,
		pgvector.NewVector(embedding), id)
}

func (s *PostgresStore) SetSuspectScore(ctx context.Context, id uuid.UUID, score float64) error {
	return s.execOne(ctx, "set suspect score",
		`UPDATE suspects SET score = $1, scored_at = $2 WHERE id = $3`,
		score, time.Now(), id)
}

func (s *PostgresStore) DeleteSuspect(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "delete suspect", `DELETE FROM suspects WHERE id = $1`, id)
}

func (s *PostgresStore) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Documents ---

const documentColumns = `id, collection, object_key, content_type, size, title, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	if err := row.Scan(&d.ID, &d.Collection, &d.ObjectKey, &d.ContentType, &d.Size,
		&d.Title, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, collection, object_key, content_type, size, title)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		d.ID, d.Collection, d.ObjectKey, d.ContentType, d.Size, d.Title,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection models.Collection, id uuid.UUID) (*models.Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = $1 AND id = $2`, collection, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection models.Collection) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = $1 ORDER BY created_at DESC`, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d *models.Document) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE documents SET object_key = $1, content_type = $2, size = $3, title = $4, updated_at = now()
		 WHERE collection = $5 AND id = $6 RETURNING created_at, updated_at`,
		d.ObjectKey, d.ContentType, d.Size, d.Title, d.Collection, d.ID,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection models.Collection, id uuid.UUID) error {
	return s.execOne(ctx, "delete document",
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
}

// --- Sightings ---

func (s *PostgresStore) CreateSighting(ctx context.Context, sg *models.Sighting) error {
	if sg.ID == uuid.Nil {
		sg.ID = uuid.New()
	}
	sg.CreatedAt = time.Now()
	var vec *pgvector.Vector
	if len(sg.Embedding) > 0 {
		v := pgvector.NewVector(sg.Embedding)
		vec = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sightings (id, observation_id, device_id, track_id, timestamp, bbox, embedding,
		 matched_suspect_id, match_score, latitude, longitude, snapshot_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sg.ID, sg.ObservationID, sg.DeviceID, sg.TrackID, sg.Timestamp, sg.BBox[:], vec,
		sg.MatchedSuspectID, sg.MatchScore, sg.Latitude, sg.Longitude, sg.SnapshotKey, sg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create sighting: %w", err)
	}
	return nil
}

// SightingFilter narrows QuerySightings. Zero values mean "any".
type SightingFilter struct {
	DeviceID  string
	SuspectID *uuid.UUID
	From, To  *time.Time
	Unknown   bool // only sightings with no matched suspect
	Limit     int
	Offset    int
}

func (s *PostgresStore) QuerySightings(ctx context.Context, f SightingFilter) ([]models.Sighting, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}

	where := "WHERE TRUE"
	args := []interface{}{}
	argIdx := 1

	if f.DeviceID != "" {
		where += fmt.Sprintf(" AND device_id = $%d", argIdx)
		args = append(args, f.DeviceID)
		argIdx++
	}
	if f.SuspectID != nil {
		where += fmt.Sprintf(" AND matched_suspect_id = $%d", argIdx)
		args = append(args, *f.SuspectID)
		argIdx++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}
	if f.Unknown {
		where += " AND matched_suspect_id IS NULL"
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sightings "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sightings: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, observation_id, device_id, track_id, timestamp, bbox, matched_suspect_id,
		 match_score, latitude, longitude, snapshot_key, created_at
		 FROM sightings %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []models.Sighting
	for rows.Next() {
		var (
			sg   models.Sighting
			bbox []float32
		)
		if err := rows.Scan(&sg.ID, &sg.ObservationID, &sg.DeviceID, &sg.TrackID, &sg.Timestamp,
			&bbox, &sg.MatchedSuspectID, &sg.MatchScore, &sg.Latitude, &sg.Longitude,
			&sg.SnapshotKey, &sg.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan sighting: %w", err)
		}
		copy(sg.BBox[:], bbox)
		sightings = append(sightings, sg)
	}
	return sightings, total, rows.Err()
}
