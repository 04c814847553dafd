package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facegate/internal/api/ws"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/recognizer"
)

type stubIdentifier struct {
	attempt *models.AccessAttempt
	err     error
}

func (s *stubIdentifier) Identify(ctx context.Context, image []byte, opts recognizer.Options) (*models.AccessAttempt, error) {
	return s.attempt, s.err
}

type mapStore struct {
	objects map[string][]byte
	err     error
}

func (m *mapStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

type stubPublisher struct {
	tasks []models.CaptureTask
	err   error
}

func (s *stubPublisher) PublishCapture(ctx context.Context, task models.CaptureTask) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func multipartImage(t *testing.T, device string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "cam.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("jpegbytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if device != "" {
		if err := w.WriteField("device_id", device); err != nil {
			t.Fatalf("write device field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postIdentify(t *testing.T, h *IdentifyHandler, path string, handle gin.HandlerFunc, device string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST(path, handle)

	body, contentType := multipartImage(t, device)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func deniedAttempt() *models.AccessAttempt {
	pid := int64(7)
	return &models.AccessAttempt{
		ID:        uuid.New(),
		Timestamp: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		PersonID:  &pid,
		Accepted:  false,
		Label:     models.LabelDesconocido,
		Reason:    recognizer.ReasonSchedule,
		CreatedAt: time.Now(),
	}
}

func TestIdentifyAccepted(t *testing.T) {
	pid := int64(3)
	attempt := &models.AccessAttempt{
		ID:        uuid.New(),
		Timestamp: time.Date(2025, 6, 2, 8, 5, 0, 0, time.UTC),
		PersonID:  &pid,
		Accepted:  true,
		Label:     models.LabelEntrada,
		Reason:    recognizer.ReasonAccepted,
		CreatedAt: time.Now(),
	}
	h := NewIdentifyHandler(&stubIdentifier{attempt: attempt}, &mapStore{}, &stubPublisher{}, ws.NewHub())

	rec := postIdentify(t, h, "/identify", h.Identify, "gate-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Attempt struct {
			Accepted bool   `json:"accepted"`
			Label    string `json:"label"`
		} `json:"attempt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Attempt.Accepted || resp.Attempt.Label != models.LabelEntrada {
		t.Errorf("attempt = %+v, want accepted ENTRADA", resp.Attempt)
	}
}

// A schedule lookup failure still records a denied attempt, but the
// cycle failed: the endpoint must not report success.
func TestIdentifyScheduleFailureIsError(t *testing.T) {
	h := NewIdentifyHandler(
		&stubIdentifier{attempt: deniedAttempt(), err: errors.New("shift lookup: connection refused")},
		&mapStore{}, &stubPublisher{}, ws.NewHub(),
	)

	rec := postIdentify(t, h, "/identify", h.Identify, "gate-1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusInternalServerError, rec.Body.String())
	}
	var resp struct {
		Error   string `json:"error"`
		Attempt struct {
			Accepted bool   `json:"accepted"`
			Reason   string `json:"reason"`
		} `json:"attempt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("error missing from response")
	}
	if resp.Attempt.Accepted {
		t.Error("attempt reported as accepted")
	}
	if resp.Attempt.Reason != recognizer.ReasonSchedule {
		t.Errorf("reason = %q, want %q", resp.Attempt.Reason, recognizer.ReasonSchedule)
	}
}

func TestIdentifyEngineFailure(t *testing.T) {
	h := NewIdentifyHandler(
		&stubIdentifier{err: errors.New("session run failed")},
		&mapStore{}, &stubPublisher{}, ws.NewHub(),
	)

	rec := postIdentify(t, h, "/identify", h.Identify, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestIdentifyUnavailable(t *testing.T) {
	h := NewIdentifyHandler(nil, &mapStore{}, &stubPublisher{}, ws.NewHub())

	rec := postIdentify(t, h, "/identify", h.Identify, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestEnqueueCapture(t *testing.T) {
	store := &mapStore{}
	pub := &stubPublisher{}
	h := NewIdentifyHandler(nil, store, pub, ws.NewHub())

	rec := postIdentify(t, h, "/captures", h.EnqueueCapture, "gate-2")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if len(pub.tasks) != 1 {
		t.Fatalf("published %d tasks, want 1", len(pub.tasks))
	}
	task := pub.tasks[0]
	if task.DeviceID != "gate-2" {
		t.Errorf("DeviceID = %q, want gate-2", task.DeviceID)
	}
	if _, ok := store.objects[task.ObjectKey]; !ok {
		t.Errorf("snapshot %q not stored", task.ObjectKey)
	}
}
