package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/observability"
	"github.com/your-org/facegate/internal/recognizer"
	"github.com/your-org/facegate/internal/storage"
	"github.com/your-org/facegate/pkg/dto"
)

type PersonHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	// EmbedFn extracts a face embedding from image bytes.
	// Set this after the vision models are initialized.
	EmbedFn func(ctx context.Context, imageData []byte) ([]float32, error)
	// MemIndex is non-nil when the in-process index is active; it is
	// kept in sync with enrollment changes.
	MemIndex *match.MemoryIndex
}

func NewPersonHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *PersonHandler {
	return &PersonHandler{db: db, minio: minio}
}

func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person, err := h.db.CreatePerson(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(c, person, 0))
}

func (h *PersonHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	persons, err := h.db.ListPersons(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PersonResponse, 0, len(persons))
	for _, p := range persons {
		faceCount, _ := h.db.CountFaces(c.Request.Context(), p.ID)
		resp = append(resp, h.toResponse(c, &p, faceCount))
	}

	c.JSON(http.StatusOK, dto.PersonListResponse{Persons: resp, Total: len(resp)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	faceCount, _ := h.db.CountFaces(c.Request.Context(), id)
	c.JSON(http.StatusOK, h.toResponse(c, person, faceCount))
}

// Deactivate marks a person inactive. Their embeddings stay enrolled so
// future matches surface as "recognized but inactive"; nothing is ever
// hard-deleted.
func (h *PersonHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Activate re-enables a previously deactivated person.
func (h *PersonHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *PersonHandler) setActive(c *gin.Context, active bool) {
	id, ok := personID(c)
	if !ok {
		return
	}

	if err := h.db.SetPersonActive(c.Request.Context(), id, active); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if h.MemIndex != nil {
		h.MemIndex.SetPersonActive(id, active)
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "active": active})
}

// AddFace accepts a multipart image upload, extracts an embedding, and
// enrolls it for the person.
func (h *PersonHandler) AddFace(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	imageData, filename, ok := readImage(c)
	if !ok {
		return
	}

	if h.EmbedFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision models not initialized"})
		return
	}

	embedding, err := h.EmbedFn(c.Request.Context(), imageData)
	if err != nil {
		if errors.Is(err, recognizer.ErrNoFace) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no face detected in image"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	device := c.PostForm("device")
	sourceKey := "faces/" + strconv.FormatInt(id, 10) + "/" + uuid.New().String() + "_" + filename
	if err := h.minio.PutObject(c.Request.Context(), sourceKey, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	fe, err := h.db.AddFaceEmbedding(c.Request.Context(), id, embedding, device, sourceKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.MemIndex != nil {
		_ = h.MemIndex.Add(match.EnrolledFace{
			FaceID:    fe.ID,
			PersonID:  id,
			Name:      person.Name,
			Active:    person.Active,
			Embedding: fe.Embedding,
		})
	}
	observability.FacesEnrolled.Inc()

	c.JSON(http.StatusCreated, toFaceResponse(fe))
}

func (h *PersonHandler) ListFaces(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}

	faces, err := h.db.ListFaceEmbeddings(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, toFaceResponse(&f))
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

func (h *PersonHandler) DeleteFace(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	if err := h.db.DeleteFaceEmbedding(c.Request.Context(), id, faceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if h.MemIndex != nil {
		h.MemIndex.Remove(faceID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func personID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return 0, false
	}
	return id, true
}

func (h *PersonHandler) toResponse(c *gin.Context, p *models.Person, faceCount int) dto.PersonResponse {
	return dto.PersonResponse{
		ID:        p.ID,
		Name:      p.Name,
		Active:    p.Active,
		FaceCount: faceCount,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func toFaceResponse(f *models.FaceEmbedding) dto.FaceResponse {
	return dto.FaceResponse{
		ID:        f.ID,
		PersonID:  f.PersonID,
		Device:    f.Device,
		SourceKey: f.SourceKey,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}
