package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/auth"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/group-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/group-scheduler/internal/scheduling"
)

var (
	ErrInvalidBody  = apperror.New(http.StatusBadRequest, "invalid request body")
	ErrInvalidDate  = apperror.New(http.StatusBadRequest, "occurrence_date must be YYYY-MM-DD")
	ErrUnauthorized = apperror.New(http.StatusUnauthorized, "unauthorized")
)

type Handler struct {
	service scheduling.Service
	log     zerolog.Logger
}

func NewHandler(service scheduling.Service, log zerolog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// actor returns the authenticated user id, writing 401 when there is none.
func (h *Handler) actor(c *gin.Context) (string, bool) {
	userID := auth.GetUserID(c)
	if userID == "" {
		response.Error(c, ErrUnauthorized)
		return "", false
	}
	return userID, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.log.Error().Err(err).Str("op", op).Str("user_id", auth.GetUserID(c)).Msg("scheduler request failed")
	response.Error(c, err)
}

func (h *Handler) RefineFilters(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body FiltersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}

	r, err := h.service.RefineFilters(c.Request.Context(), userID, body.toFilters())
	if err != nil {
		h.fail(c, "refine filters", err)
		return
	}

	c.JSON(http.StatusOK, NewRefinementResponse(r))
}

func (h *Handler) ApplyFilters(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body FiltersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}

	b, err := h.service.ApplyFilters(c.Request.Context(), userID, body.toFilters())
	if err != nil {
		h.fail(c, "apply filters", err)
		return
	}

	c.JSON(http.StatusOK, NewBoardResponse(b))
}

// GetBoard applies the actor's saved filters.
func (h *Handler) GetBoard(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	f, err := h.service.LoadFilters(ctx, userID)
	if err != nil {
		h.fail(c, "load filters", err)
		return
	}

	b, err := h.service.ApplyFilters(ctx, userID, f)
	if err != nil {
		h.fail(c, "apply filters", err)
		return
	}

	c.JSON(http.StatusOK, NewBoardResponse(b))
}

func (h *Handler) GetCloneSettings(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body CloneRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}

	opts, err := h.service.GetCloneSettings(c.Request.Context(), userID, body.Filters.toFilters(), body.Settings.toSettings())
	if err != nil {
		h.fail(c, "get clone settings", err)
		return
	}

	c.JSON(http.StatusOK, NewCloneOptionsResponse(opts))
}

func (h *Handler) CloneSchedules(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body CloneRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}

	out, err := h.service.CloneSchedules(c.Request.Context(), userID, body.Filters.toFilters(), body.Settings.toSettings())
	if err != nil {
		h.fail(c, "clone schedules", err)
		return
	}

	c.JSON(http.StatusOK, NewCloneOutcomeResponse(out))
}

func (h *Handler) AutoSchedule(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body FiltersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}

	res, err := h.service.AutoSchedule(c.Request.Context(), userID, body.toFilters())
	if err != nil {
		h.fail(c, "auto schedule", err)
		return
	}

	c.JSON(http.StatusOK, AutoScheduleResponse{
		Board:            NewBoardResponse(res.Board),
		RecordsCreated:   res.RecordsCreated,
		AssignmentFailed: res.AssignmentFailed,
	})
}

func (h *Handler) GetOrAddOccurrenceRecord(c *gin.Context) {
	userID, ok := h.actor(c)
	if !ok {
		return
	}

	var body OccurrenceRecordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, ErrInvalidBody)
		return
	}
	date, err := time.Parse(dateLayout, body.OccurrenceDate)
	if err != nil {
		response.Error(c, ErrInvalidDate)
		return
	}

	occ := occurrence.Occurrence{
		GroupID:        body.GroupID,
		LocationID:     body.LocationID,
		ScheduleID:     body.ScheduleID,
		OccurrenceDate: date,
	}
	id, ok, err := h.service.GetOrAddOccurrenceRecord(c.Request.Context(), userID, occ)
	if err != nil {
		h.fail(c, "get or add occurrence record", err)
		return
	}

	resp := OccurrenceRecordResponse{IsSchedulingEnabled: ok}
	if ok {
		resp.RecordID = &id
	}
	c.JSON(http.StatusOK, resp)
}
