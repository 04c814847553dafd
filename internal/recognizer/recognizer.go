package recognizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/observability"
)

// ErrNoFace is returned by an EmbeddingSource when the input image
// holds no usable face (including undecodable images). It is a normal
// negative outcome, not a pipeline failure.
var ErrNoFace = errors.New("no face detected")

// EmbeddingSource produces a fixed-dimension embedding for the face in
// an image. The model behind it is a black box loaded once at startup.
type EmbeddingSource interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// Recorder persists one AccessAttempt per recognition cycle. The
// attempt is immutable once recorded.
type Recorder interface {
	Record(ctx context.Context, attempt *models.AccessAttempt) error
}

// Reasons written to the attempt record. Operators rely on the
// inactive reason being distinct from plain no-match.
const (
	ReasonAccepted = "match accepted"
	ReasonNoFace   = "no face detected"
	ReasonNoMatch  = "no matching identity"
	ReasonInactive = "recognized but inactive"
	ReasonSchedule = "schedule configuration rejected"
)

// Config wires a Recognizer's collaborators.
type Config struct {
	Source    EmbeddingSource
	Index     match.Index
	Resolver  *attendance.Resolver
	Recorder  Recorder
	Policy    attendance.Policy
	Threshold float64
	TopK      int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Recognizer runs one full recognition cycle: embed, query, decide,
// resolve, classify, record. It holds no per-request state and is safe
// for concurrent use.
type Recognizer struct {
	source    EmbeddingSource
	index     match.Index
	resolver  *attendance.Resolver
	recorder  Recorder
	policy    attendance.Policy
	threshold float64
	topK      int
	now       func() time.Time
}

func New(cfg Config) *Recognizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Recognizer{
		source:    cfg.Source,
		index:     cfg.Index,
		resolver:  cfg.Resolver,
		recorder:  cfg.Recorder,
		policy:    cfg.Policy,
		threshold: cfg.Threshold,
		topK:      topK,
		now:       now,
	}
}

// Options carries per-cycle context supplied by the caller: the
// capture timestamp (zero means now), the originating device and the
// stored snapshot key.
type Options struct {
	Timestamp   time.Time
	DeviceID    string
	SnapshotKey string
}

// Identify runs one recognition cycle over an image and records
// exactly one AccessAttempt, rejections included. The returned error
// is non-nil only for pipeline failures (index/storage down, malformed
// schedule); negative outcomes are normal attempts with Accepted
// false. On a schedule failure the cycle fails closed: the attempt is
// recorded as denied and the error is still returned.
func (r *Recognizer) Identify(ctx context.Context, image []byte, opts Options) (*models.AccessAttempt, error) {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	attempt := &models.AccessAttempt{
		ID:          uuid.New(),
		Timestamp:   ts,
		DeviceID:    opts.DeviceID,
		SnapshotKey: opts.SnapshotKey,
		Label:       models.LabelDesconocido,
	}

	start := r.now()
	embedding, err := r.source.Embed(ctx, image)
	observability.InferenceDuration.WithLabelValues("embed").Observe(r.now().Sub(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			attempt.Reason = ReasonNoFace
			return attempt, r.record(ctx, attempt, "no_face")
		}
		return nil, fmt.Errorf("extract embedding: %w", err)
	}

	start = r.now()
	candidates, err := r.index.Query(ctx, embedding, r.topK)
	observability.InferenceDuration.WithLabelValues("search").Observe(r.now().Sub(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	decision := match.Decide(candidates, r.threshold)
	if len(candidates) > 0 {
		confidence := decision.Confidence
		attempt.Confidence = &confidence
		observability.MatchConfidence.Observe(confidence)
	}

	switch decision.Status {
	case match.StatusNoMatch:
		attempt.Reason = ReasonNoMatch
		return attempt, r.record(ctx, attempt, "no_match")

	case match.StatusInactive:
		personID := decision.PersonID
		attempt.PersonID = &personID
		attempt.PersonName = decision.Name
		attempt.Reason = ReasonInactive
		return attempt, r.record(ctx, attempt, "inactive")
	}

	personID := decision.PersonID
	attempt.PersonID = &personID
	attempt.PersonName = decision.Name

	resolution, err := r.resolver.Resolve(ctx, personID, ts)
	if err != nil {
		return r.failClosed(ctx, attempt, err)
	}

	result, err := attendance.Classify(ts, resolution, r.policy)
	if err != nil {
		return r.failClosed(ctx, attempt, err)
	}

	attempt.Accepted = true
	attempt.Label = result.Label
	attempt.OvertimeHours = result.OvertimeHours
	attempt.WorkDay = result.WorkDay
	attempt.Reason = ReasonAccepted
	return attempt, r.record(ctx, attempt, "accepted")
}

// failClosed records a denied attempt for a schedule failure and
// propagates the original error. Access is never granted by default.
func (r *Recognizer) failClosed(ctx context.Context, attempt *models.AccessAttempt, cause error) (*models.AccessAttempt, error) {
	attempt.Accepted = false
	attempt.Reason = ReasonSchedule
	if recErr := r.record(ctx, attempt, "error"); recErr != nil {
		return nil, errors.Join(cause, recErr)
	}
	return attempt, cause
}

func (r *Recognizer) record(ctx context.Context, attempt *models.AccessAttempt, outcome string) error {
	if err := r.recorder.Record(ctx, attempt); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	observability.AccessAttempts.WithLabelValues(outcome, attempt.Label).Inc()
	return nil
}
