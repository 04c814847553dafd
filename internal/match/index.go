package match

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

// Candidate is one nearest-neighbor result, best-first. One candidate
// per enrolled embedding record, not per identity: a person with more
// enrolled poses gets proportionally more chances to be the top hit.
type Candidate struct {
	FaceID     uuid.UUID
	PersonID   int64
	Name       string
	Similarity float64
	Active     bool
}

// Index answers nearest-neighbor queries over enrolled embeddings.
// Implementations must be safe for concurrent queries while enrollment
// writes happen. An empty index returns an empty result, not an error.
type Index interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]Candidate, error)
}

// EnrolledFace is one embedding record loaded into a MemoryIndex.
type EnrolledFace struct {
	FaceID    uuid.UUID
	PersonID  int64
	Name      string
	Active    bool
	Embedding []float32
}

const graphMaxNeighbors = 16

// MemoryIndex is an in-process vector index over an HNSW graph,
// warmed from the database at startup and maintained on enrollment
// and deactivation. Reads and writes may interleave; each write is
// atomic from a reader's perspective.
type MemoryIndex struct {
	dim int

	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	next    int64
	removed int
	faces   map[int64]*EnrolledFace // graph key -> record
	byID    map[uuid.UUID]int64     // face id -> graph key
}

func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{
		dim:   dim,
		faces: make(map[int64]*EnrolledFace),
		byID:  make(map[uuid.UUID]int64),
	}
}

// Len returns the number of enrolled embeddings.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces)
}

// Add enrolls one embedding record. The vector is copied so later
// mutation by the caller cannot corrupt a concurrent query.
func (m *MemoryIndex) Add(face EnrolledFace) error {
	if len(face.Embedding) != m.dim {
		return fmt.Errorf("embedding dimension %d, index expects %d", len(face.Embedding), m.dim)
	}

	vec := make([]float32, len(face.Embedding))
	copy(vec, face.Embedding)
	face.Embedding = vec

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = graphMaxNeighbors
		g.Ml = 1.0 / float64(graphMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		m.graph = g
	}

	key := m.next
	m.next++
	m.graph.Add(hnsw.MakeNode(key, vec))
	m.faces[key] = &face
	m.byID[face.FaceID] = key
	return nil
}

// Remove drops an embedding record. The HNSW graph keeps the node but
// queries filter it out by lookup.
func (m *MemoryIndex) Remove(faceID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.byID[faceID]; ok {
		delete(m.faces, key)
		delete(m.byID, faceID)
		m.removed++
	}
}

// SetPersonActive flips the active flag on all of a person's records.
// Deactivation takes effect for the next query.
func (m *MemoryIndex) SetPersonActive(personID int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, face := range m.faces {
		if face.PersonID == personID {
			face.Active = active
		}
	}
}

// Query returns up to topK candidates ordered by similarity, ties
// broken by ascending person ID then face ID so results never depend
// on map iteration order.
func (m *MemoryIndex) Query(_ context.Context, embedding []float32, topK int) ([]Candidate, error) {
	if len(embedding) != m.dim {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(embedding), m.dim)
	}
	if topK <= 0 {
		topK = 1
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.graph == nil || len(m.faces) == 0 {
		return nil, nil
	}

	// Over-fetch to survive filtered-out removed nodes.
	neighbors := m.graph.Search(embedding, topK+m.removed)

	candidates := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		face, ok := m.faces[n.Key]
		if !ok {
			continue // removed
		}
		candidates = append(candidates, Candidate{
			FaceID:     face.FaceID,
			PersonID:   face.PersonID,
			Name:       face.Name,
			Similarity: CosineSimilarity(embedding, face.Embedding),
			Active:     face.Active,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if candidates[i].PersonID != candidates[j].PersonID {
			return candidates[i].PersonID < candidates[j].PersonID
		}
		return candidates[i].FaceID.String() < candidates[j].FaceID.String()
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}
