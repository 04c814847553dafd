package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegate/internal/api/ws"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/recognizer"
	"github.com/your-org/facegate/pkg/dto"
)

// Identifier runs one recognition cycle. *recognizer.Recognizer
// implements it.
type Identifier interface {
	Identify(ctx context.Context, image []byte, opts recognizer.Options) (*models.AccessAttempt, error)
}

// SnapshotPutter stores capture images. *storage.MinIOStore implements
// it.
type SnapshotPutter interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// CapturePublisher enqueues capture tasks for the worker.
// *queue.Producer implements it.
type CapturePublisher interface {
	PublishCapture(ctx context.Context, task models.CaptureTask) error
}

// IdentifyHandler serves the synchronous recognition endpoint and the
// asynchronous capture intake for access terminals.
type IdentifyHandler struct {
	rec      Identifier
	minio    SnapshotPutter
	producer CapturePublisher
	hub      *ws.Hub
}

func NewIdentifyHandler(rec Identifier, minio SnapshotPutter, producer CapturePublisher, hub *ws.Hub) *IdentifyHandler {
	return &IdentifyHandler{rec: rec, minio: minio, producer: producer, hub: hub}
}

// Identify runs one full recognition cycle over an uploaded snapshot
// and returns the recorded outcome. Rejections are 200s with
// accepted=false; only pipeline failures are 5xx.
func (h *IdentifyHandler) Identify(c *gin.Context) {
	if h.rec == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision models not initialized"})
		return
	}

	imageData, filename, ok := readImage(c)
	if !ok {
		return
	}

	deviceID := c.PostForm("device_id")
	ts, ok := parseTimestamp(c, c.PostForm("timestamp"))
	if !ok {
		return
	}

	snapshotKey := captureKey(deviceID, filename)
	if err := h.minio.PutObject(c.Request.Context(), snapshotKey, imageData, "image/jpeg"); err != nil {
		slog.Warn("store snapshot", "error", err)
		snapshotKey = ""
	}

	attempt, err := h.rec.Identify(c.Request.Context(), imageData, recognizer.Options{
		Timestamp:   ts,
		DeviceID:    deviceID,
		SnapshotKey: snapshotKey,
	})
	if err != nil {
		if attempt == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// A schedule failure still yields a recorded, denied attempt,
		// but the cycle itself failed: surface that to the terminal.
		h.hub.BroadcastAttempt(&dto.WSEvent{
			Type:     "access_attempt",
			PersonID: attempt.PersonID,
			Data:     toAttemptResponse(attempt),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"attempt": toAttemptResponse(attempt),
		})
		return
	}

	h.hub.BroadcastAttempt(&dto.WSEvent{
		Type:     "access_attempt",
		PersonID: attempt.PersonID,
		Data:     toAttemptResponse(attempt),
	})

	c.JSON(http.StatusOK, dto.IdentifyResponse{Attempt: toAttemptResponse(attempt)})
}

// EnqueueCapture stores a terminal snapshot and queues it for
// asynchronous identification by the worker.
func (h *IdentifyHandler) EnqueueCapture(c *gin.Context) {
	imageData, filename, ok := readImage(c)
	if !ok {
		return
	}

	deviceID := c.PostForm("device_id")
	ts, ok := parseTimestamp(c, c.PostForm("timestamp"))
	if !ok {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	objectKey := captureKey(deviceID, filename)
	if err := h.minio.PutObject(c.Request.Context(), objectKey, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store snapshot failed"})
		return
	}

	task := models.CaptureTask{
		CaptureID: uuid.New(),
		DeviceID:  deviceID,
		Timestamp: ts,
		ObjectKey: objectKey,
	}
	if err := h.producer.PublishCapture(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"capture_id": task.CaptureID,
		"object_key": task.ObjectKey,
	})
}

func readImage(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func parseTimestamp(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp, want RFC3339"})
		return time.Time{}, false
	}
	return ts, true
}

func captureKey(deviceID, filename string) string {
	if deviceID == "" {
		deviceID = "unknown"
	}
	return "captures/" + deviceID + "/" + uuid.New().String() + "_" + filename
}

func toAttemptResponse(a *models.AccessAttempt) dto.AttemptResponse {
	return dto.AttemptResponse{
		ID:            a.ID,
		Timestamp:     a.Timestamp.Format(time.RFC3339),
		DeviceID:      a.DeviceID,
		PersonID:      a.PersonID,
		PersonName:    a.PersonName,
		Confidence:    a.Confidence,
		Accepted:      a.Accepted,
		Label:         a.Label,
		OvertimeHours: a.OvertimeHours,
		WorkDay:       a.WorkDay,
		Reason:        a.Reason,
		SnapshotKey:   a.SnapshotKey,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}
