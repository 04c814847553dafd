package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/storage"
	"github.com/your-org/facegate/pkg/dto"
)

type ShiftHandler struct {
	db  *storage.PostgresStore
	def attendance.Shift
}

func NewShiftHandler(db *storage.PostgresStore, def attendance.Shift) *ShiftHandler {
	return &ShiftHandler{db: db, def: def}
}

// Upsert sets or replaces a person's shift. Malformed shifts, overnight
// ones included, are rejected up front so the classifier never sees
// them.
func (h *ShiftHandler) Upsert(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}

	var req dto.UpsertShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shift, err := shiftFromRequest(req, h.def)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, attendance.ErrOvernightShift) {
			c.JSON(status, gin.H{"error": "overnight shifts are not supported: exit must be after entry"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
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

	if err := h.db.UpsertShift(c.Request.Context(), id, shift); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toShiftResponse(id, shift, false))
}

// Get returns the person's shift, falling back to the configured
// default schedule when none is set.
func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := personID(c)
	if !ok {
		return
	}

	shift, found, err := h.db.ShiftFor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusOK, toShiftResponse(id, h.def, true))
		return
	}

	c.JSON(http.StatusOK, toShiftResponse(id, shift, false))
}

func shiftFromRequest(req dto.UpsertShiftRequest, def attendance.Shift) (attendance.Shift, error) {
	entry, err := attendance.ParseClock(req.Entry)
	if err != nil {
		return attendance.Shift{}, err
	}
	exit, err := attendance.ParseClock(req.Exit)
	if err != nil {
		return attendance.Shift{}, err
	}

	tolerance := def.Tolerance
	if req.ToleranceMinutes > 0 {
		tolerance = time.Duration(req.ToleranceMinutes) * time.Minute
	}

	weekdays := def.Weekdays
	if req.Weekdays != "" {
		weekdays, err = attendance.ParseWeekdays(req.Weekdays)
		if err != nil {
			return attendance.Shift{}, err
		}
	}

	shift := attendance.Shift{
		Entry:     entry,
		Exit:      exit,
		Tolerance: tolerance,
		Weekdays:  weekdays,
	}
	if err := shift.Validate(); err != nil {
		return attendance.Shift{}, err
	}
	return shift, nil
}

func toShiftResponse(personID int64, s attendance.Shift, isDefault bool) dto.ShiftResponse {
	return dto.ShiftResponse{
		PersonID:         personID,
		Entry:            attendance.FormatClock(s.Entry),
		Exit:             attendance.FormatClock(s.Exit),
		ToleranceMinutes: int(s.Tolerance / time.Minute),
		Weekdays:         s.Weekdays.String(),
		Default:          isDefault,
	}
}
