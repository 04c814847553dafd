package match

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const testDim = 8

func vec(values ...float32) []float32 {
	v := make([]float32, testDim)
	copy(v, values)
	return v
}

func enroll(t *testing.T, idx *MemoryIndex, personID int64, active bool, embedding []float32) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := idx.Add(EnrolledFace{
		FaceID:    id,
		PersonID:  personID,
		Active:    active,
		Embedding: embedding,
	}); err != nil {
		t.Fatalf("enroll person %d: %v", personID, err)
	}
	return id
}

func TestMemoryIndex_EmptyReturnsNoCandidates(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	got, err := idx.Query(context.Background(), vec(1), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d candidates", len(got))
	}
}

func TestMemoryIndex_ExactMatchIsTopWithSimilarityOne(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	target := vec(0.5, 0.2, -0.3, 0.7)
	enroll(t, idx, 1, true, vec(1, 0, 0, 0))
	enroll(t, idx, 42, true, target)
	enroll(t, idx, 3, true, vec(0, 1, 0, 0))

	got, err := idx.Query(context.Background(), target, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	if got[0].PersonID != 42 {
		t.Errorf("expected person 42 on top, got %d", got[0].PersonID)
	}
	if math.Abs(got[0].Similarity-1.0) > 1e-6 {
		t.Errorf("expected similarity 1.0 for exact match, got %v", got[0].Similarity)
	}
}

func TestMemoryIndex_OrderedBestFirst(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	enroll(t, idx, 1, true, vec(1, 0))
	enroll(t, idx, 2, true, vec(1, 0.2))
	enroll(t, idx, 3, true, vec(0, 1))

	got, err := idx.Query(context.Background(), vec(1, 0), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("candidates not ordered best-first at %d: %v > %v",
				i, got[i].Similarity, got[i-1].Similarity)
		}
	}
	if got[0].PersonID != 1 {
		t.Errorf("expected person 1 first, got %d", got[0].PersonID)
	}
}

func TestMemoryIndex_BestRecordPerQueryNotPerIdentity(t *testing.T) {
	// One person with several poses occupies several candidate slots.
	idx := NewMemoryIndex(testDim)
	enroll(t, idx, 5, true, vec(1, 0))
	enroll(t, idx, 5, true, vec(1, 0.1))
	enroll(t, idx, 6, true, vec(0, 1))

	got, err := idx.Query(context.Background(), vec(1, 0), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].PersonID != 5 || got[1].PersonID != 5 {
		t.Errorf("expected person 5 to hold the top two slots, got %d and %d",
			got[0].PersonID, got[1].PersonID)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	if err := idx.Add(EnrolledFace{FaceID: uuid.New(), PersonID: 1, Embedding: []float32{1, 2}}); err == nil {
		t.Error("expected error enrolling wrong-dimension vector")
	}
	if _, err := idx.Query(context.Background(), []float32{1, 2}, 1); err == nil {
		t.Error("expected error querying with wrong-dimension vector")
	}
}

func TestMemoryIndex_DeactivationVisibleToNextQuery(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	target := vec(1, 0)
	enroll(t, idx, 7, true, target)

	got, _ := idx.Query(context.Background(), target, 1)
	if len(got) != 1 || !got[0].Active {
		t.Fatalf("expected one active candidate, got %+v", got)
	}

	idx.SetPersonActive(7, false)

	got, _ = idx.Query(context.Background(), target, 1)
	if len(got) != 1 {
		t.Fatalf("expected candidate still present after deactivation")
	}
	if got[0].Active {
		t.Error("expected candidate to be flagged inactive")
	}
}

func TestMemoryIndex_RemovedFaceDisappears(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	target := vec(1, 0)
	faceID := enroll(t, idx, 7, true, target)
	enroll(t, idx, 8, true, vec(0, 1))

	idx.Remove(faceID)

	got, err := idx.Query(context.Background(), target, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range got {
		if c.FaceID == faceID {
			t.Error("removed face returned by query")
		}
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 remaining record, got %d", idx.Len())
	}
}

func TestMemoryIndex_ConcurrentEnrollAndQuery(t *testing.T) {
	idx := NewMemoryIndex(testDim)
	enroll(t, idx, 1, true, vec(1, 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = idx.Add(EnrolledFace{
				FaceID:    uuid.New(),
				PersonID:  int64(n + 10),
				Active:    true,
				Embedding: vec(float32(n), 1),
			})
		}(i)
		go func() {
			defer wg.Done()
			candidates, err := idx.Query(context.Background(), vec(1, 0), 3)
			if err != nil {
				t.Errorf("query error: %v", err)
				return
			}
			// Whatever is visible must be well-formed.
			for _, c := range candidates {
				if c.Similarity < -1 || c.Similarity > 1 {
					t.Errorf("similarity out of range: %v", c.Similarity)
				}
			}
		}()
	}
	wg.Wait()
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: expected 1.0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1, 0}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 0.0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{-1, 0, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors: expected -1.0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0}); got != 0 {
		t.Errorf("mismatched lengths: expected 0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0, 0}); got != 0 {
		t.Errorf("zero vector: expected 0, got %v", got)
	}
}
