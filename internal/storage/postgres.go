package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/config"
	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/models"
)

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

// --- Persons ---

func (s *PostgresStore) CreatePerson(ctx context.Context, name string) (*models.Person, error) {
	p := &models.Person{Name: name, Active: true}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO persons (name, active) VALUES ($1, TRUE) RETURNING id, created_at, updated_at`,
		name,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, active, created_at, updated_at FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, activeOnly bool) ([]models.Person, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM persons ORDER BY id`
	if activeOnly {
		query = `SELECT id, name, active, created_at, updated_at FROM persons WHERE active ORDER BY id`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// SetPersonActive flips the active flag. Persons are never hard
// deleted while attempts reference them.
func (s *PostgresStore) SetPersonActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE persons SET active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set person active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("person not found")
	}
	return nil
}

func (s *PostgresStore) CountFaces(ctx context.Context, personID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_embeddings WHERE person_id = $1`, personID,
	).Scan(&count)
	return count, err
}

// --- Face embeddings ---

func (s *PostgresStore) AddFaceEmbedding(ctx context.Context, personID int64, embedding []float32, device, sourceKey string) (*models.FaceEmbedding, error) {
	fe := &models.FaceEmbedding{
		ID:        uuid.New(),
		PersonID:  personID,
		Embedding: embedding,
		Device:    device,
		SourceKey: sourceKey,
	}
	vec := pgvector.NewVector(embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_embeddings (id, person_id, embedding, device, source_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		fe.ID, fe.PersonID, vec, fe.Device, fe.SourceKey,
	).Scan(&fe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add face embedding: %w", err)
	}
	return fe, nil
}

func (s *PostgresStore) DeleteFaceEmbedding(ctx context.Context, personID int64, faceID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_embeddings WHERE id = $1 AND person_id = $2`, faceID, personID)
	if err != nil {
		return fmt.Errorf("delete face embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face embedding not found")
	}
	return nil
}

func (s *PostgresStore) ListFaceEmbeddings(ctx context.Context, personID int64) ([]models.FaceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, person_id, device, source_key, created_at FROM face_embeddings WHERE person_id = $1 ORDER BY created_at DESC`,
		personID)
	if err != nil {
		return nil, fmt.Errorf("list face embeddings: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceEmbedding
	for rows.Next() {
		var fe models.FaceEmbedding
		if err := rows.Scan(&fe.ID, &fe.PersonID, &fe.Device, &fe.SourceKey, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		faces = append(faces, fe)
	}
	return faces, nil
}

// LoadEnrolledFaces returns every enrolled embedding with its owner's
// active flag, used to warm the in-memory index at startup.
func (s *PostgresStore) LoadEnrolledFaces(ctx context.Context) ([]match.EnrolledFace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fe.id, fe.person_id, p.name, p.active, fe.embedding
		 FROM face_embeddings fe
		 JOIN persons p ON p.id = fe.person_id
		 ORDER BY fe.created_at`)
	if err != nil {
		return nil, fmt.Errorf("load enrolled faces: %w", err)
	}
	defer rows.Close()

	var faces []match.EnrolledFace
	for rows.Next() {
		var f match.EnrolledFace
		var vec pgvector.Vector
		if err := rows.Scan(&f.FaceID, &f.PersonID, &f.Name, &f.Active, &vec); err != nil {
			return nil, fmt.Errorf("scan enrolled face: %w", err)
		}
		f.Embedding = vec.Slice()
		faces = append(faces, f)
	}
	return faces, nil
}

// SearchCandidates runs the pgvector nearest-neighbor query. One row
// per embedding record, best-first; inactive owners are returned with
// their flag so the decider can distinguish them from strangers. Ties
// are broken by ascending person id to keep ordering deterministic.
func (s *PostgresStore) SearchCandidates(ctx context.Context, embedding []float32, topK int) ([]match.Candidate, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT fe.id, fe.person_id, p.name, p.active, 1 - (fe.embedding <=> $1) AS similarity
		 FROM face_embeddings fe
		 JOIN persons p ON p.id = fe.person_id
		 ORDER BY fe.embedding <=> $1, fe.person_id
		 LIMIT $2`,
		vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	var candidates []match.Candidate
	for rows.Next() {
		var c match.Candidate
		if err := rows.Scan(&c.FaceID, &c.PersonID, &c.Name, &c.Active, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// PostgresIndex adapts SearchCandidates to the match.Index contract.
type PostgresIndex struct {
	store *PostgresStore
	topK  int
}

func (s *PostgresStore) Index() *PostgresIndex {
	return &PostgresIndex{store: s}
}

func (i *PostgresIndex) Query(ctx context.Context, embedding []float32, topK int) ([]match.Candidate, error) {
	return i.store.SearchCandidates(ctx, embedding, topK)
}

// --- Shifts ---

// UpsertShift stores a person's schedule. Times are "HH:MM".
func (s *PostgresStore) UpsertShift(ctx context.Context, personID int64, shift attendance.Shift) error {
	if err := shift.Validate(); err != nil {
		return fmt.Errorf("upsert shift: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO shifts (person_id, entry_time, exit_time, tolerance_minutes, weekdays)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (person_id) DO UPDATE
		 SET entry_time = EXCLUDED.entry_time,
		     exit_time = EXCLUDED.exit_time,
		     tolerance_minutes = EXCLUDED.tolerance_minutes,
		     weekdays = EXCLUDED.weekdays,
		     updated_at = now()`,
		personID,
		attendance.FormatClock(shift.Entry),
		attendance.FormatClock(shift.Exit),
		int(shift.Tolerance.Minutes()),
		shift.Weekdays.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert shift: %w", err)
	}
	return nil
}

// ShiftFor implements attendance.ShiftSource. The bool is false when
// the person has no configured schedule.
func (s *PostgresStore) ShiftFor(ctx context.Context, personID int64) (attendance.Shift, bool, error) {
	var entryStr, exitStr, weekdaysStr string
	var toleranceMin int
	err := s.pool.QueryRow(ctx,
		`SELECT entry_time, exit_time, tolerance_minutes, weekdays FROM shifts WHERE person_id = $1`,
		personID,
	).Scan(&entryStr, &exitStr, &toleranceMin, &weekdaysStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.Shift{}, false, nil
		}
		return attendance.Shift{}, false, fmt.Errorf("get shift: %w", err)
	}

	entry, err := attendance.ParseClock(entryStr)
	if err != nil {
		return attendance.Shift{}, false, fmt.Errorf("shift entry for person %d: %w", personID, err)
	}
	exit, err := attendance.ParseClock(exitStr)
	if err != nil {
		return attendance.Shift{}, false, fmt.Errorf("shift exit for person %d: %w", personID, err)
	}
	weekdays, err := attendance.ParseWeekdays(weekdaysStr)
	if err != nil {
		return attendance.Shift{}, false, fmt.Errorf("shift weekdays for person %d: %w", personID, err)
	}

	return attendance.Shift{
		Entry:     entry,
		Exit:      exit,
		Tolerance: time.Duration(toleranceMin) * time.Minute,
		Weekdays:  weekdays,
	}, true, nil
}

// --- Access attempts ---

// Record implements recognizer.Recorder: one append-only row per
// recognition cycle. Attempts are never updated or deleted; a replayed
// id (queue redelivery) is a no-op so each cycle stays single-row.
func (s *PostgresStore) Record(ctx context.Context, a *models.AccessAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_attempts (id, timestamp, device_id, person_id, confidence, accepted, label, overtime_hours, work_day, reason, snapshot_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Timestamp, a.DeviceID, a.PersonID, a.Confidence, a.Accepted,
		a.Label, a.OvertimeHours, a.WorkDay, a.Reason, a.SnapshotKey, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// AttemptFilter narrows QueryAttempts.
type AttemptFilter struct {
	From     *time.Time
	To       *time.Time
	PersonID *int64
	Accepted *bool
	Limit    int
	Offset   int
}

func (s *PostgresStore) QueryAttempts(ctx context.Context, f AttemptFilter) ([]models.AccessAttempt, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE TRUE"
	args := []interface{}{}
	argIdx := 1

	if f.From != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}
	if f.PersonID != nil {
		baseWhere += fmt.Sprintf(" AND person_id = $%d", argIdx)
		args = append(args, *f.PersonID)
		argIdx++
	}
	if f.Accepted != nil {
		baseWhere += fmt.Sprintf(" AND accepted = $%d", argIdx)
		args = append(args, *f.Accepted)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM access_attempts " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT a.id, a.timestamp, a.device_id, a.person_id, COALESCE(p.name, ''), a.confidence, a.accepted, a.label, a.overtime_hours, a.work_day, a.reason, a.snapshot_key, a.created_at
		 FROM access_attempts a
		 LEFT JOIN persons p ON p.id = a.person_id
		 %s ORDER BY a.timestamp DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.AccessAttempt
	for rows.Next() {
		var a models.AccessAttempt
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.DeviceID, &a.PersonID, &a.PersonName,
			&a.Confidence, &a.Accepted, &a.Label, &a.OvertimeHours, &a.WorkDay,
			&a.Reason, &a.SnapshotKey, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, total, nil
}

func (s *PostgresStore) GetAttempt(ctx context.Context, id uuid.UUID) (*models.AccessAttempt, error) {
	var a models.AccessAttempt
	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.timestamp, a.device_id, a.person_id, COALESCE(p.name, ''), a.confidence, a.accepted, a.label, a.overtime_hours, a.work_day, a.reason, a.snapshot_key, a.created_at
		 FROM access_attempts a
		 LEFT JOIN persons p ON p.id = a.person_id
		 WHERE a.id = $1`, id).
		Scan(&a.ID, &a.Timestamp, &a.DeviceID, &a.PersonID, &a.PersonName,
			&a.Confidence, &a.Accepted, &a.Label, &a.OvertimeHours, &a.WorkDay,
			&a.Reason, &a.SnapshotKey, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &a, nil
}
