package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/urmzd/homai-scheduler/pkg/api/types"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
)

// SchedulesHandler handles schedule CRUD endpoints
type SchedulesHandler struct {
	svc       *schedule.Service
	validator *schema.Validator
}

// NewSchedulesHandler creates a new schedules handler
func NewSchedulesHandler(svc *schedule.Service, validator *schema.Validator) *SchedulesHandler {
	return &SchedulesHandler{svc: svc, validator: validator}
}

// ListSchedules handles GET /schedules
// @Summary      List schedules
// @Description  Returns every schedule with whether it is on right now. Never writes to devices.
// @Tags         schedules
// @Produce      json
// @Success      200  {array}   schedule.Status
// @Router       /api/schedules [get]
func (h *SchedulesHandler) ListSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.List())
}

// GetSchedule handles GET /schedules/:tagId
// @Summary      Get a schedule
// @Tags         schedules
// @Produce      json
// @Param        tagId  path      string  true  "Tag ID"
// @Success      200    {object}  schedule.Status
// @Failure      404    {object}  types.ErrorResponse  "Schedule not found"
// @Router       /api/schedules/{tagId} [get]
func (h *SchedulesHandler) GetSchedule(c *gin.Context) {
	st, err := h.svc.Get(c.Param("tagId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CreateSchedule handles POST /schedules
// @Summary      Create or replace a schedule
// @Description  Stores the schedule, replaces its triggers and immediately writes the current value of every scheduled tag
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        request  body      schedule.Schedule  true  "Schedule"
// @Success      200      {object}  types.ScheduleResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid schedule"
// @Failure      503      {object}  types.ErrorResponse  "Tag writer unavailable"
// @Router       /api/schedules [post]
func (h *SchedulesHandler) CreateSchedule(c *gin.Context) {
	sch, ok := h.bind(c, h.validator.ValidateCreate)
	if !ok {
		return
	}
	h.put(c, sch, "Schedule created")
}

// UpdateSchedule handles PUT /schedules/:tagId
// @Summary      Replace a schedule
// @Description  Replaces the schedule for the tag in the path. A tagId in the body is ignored.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        tagId    path      string             true  "Tag ID"
// @Param        request  body      schedule.Schedule  true  "Schedule fields"
// @Success      200      {object}  types.ScheduleResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid schedule"
// @Failure      503      {object}  types.ErrorResponse  "Tag writer unavailable"
// @Router       /api/schedules/{tagId} [put]
func (h *SchedulesHandler) UpdateSchedule(c *gin.Context) {
	sch, ok := h.bind(c, h.validator.ValidateUpdate)
	if !ok {
		return
	}
	sch.TagID = c.Param("tagId")
	h.put(c, sch, "Schedule updated")
}

// DeleteSchedule handles DELETE /schedules/:tagId
// @Summary      Delete a schedule
// @Description  Cancels the tag's triggers and forgets its schedule. The tag keeps its current value.
// @Tags         schedules
// @Produce      json
// @Param        tagId  path      string  true  "Tag ID"
// @Success      200    {object}  types.DeleteResponse
// @Failure      503    {object}  types.ErrorResponse  "Tag writer unavailable"
// @Router       /api/schedules/{tagId} [delete]
func (h *SchedulesHandler) DeleteSchedule(c *gin.Context) {
	tagID := c.Param("tagId")

	err := h.svc.Delete(c.Request.Context(), tagID)
	resp := types.DeleteResponse{Message: "Schedule deleted", TagID: tagID}
	if err != nil {
		if !schedule.IsPersistenceError(err) {
			writeError(c, err)
			return
		}
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile handles POST /schedules/reconcile
// @Summary      Reconcile now
// @Description  Writes the value every scheduled tag should hold at this moment
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  types.ReconcileResponse
// @Failure      503  {object}  types.ErrorResponse  "Tag writer unavailable"
// @Router       /api/schedules/reconcile [post]
func (h *SchedulesHandler) Reconcile(c *gin.Context) {
	results, err := h.svc.Reconcile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	c.JSON(http.StatusOK, types.ReconcileResponse{Results: results, Failed: failed})
}

func (h *SchedulesHandler) put(c *gin.Context, sch schedule.Schedule, message string) {
	stored, err := h.svc.Put(c.Request.Context(), sch)
	resp := types.ScheduleResponse{Message: message, Schedule: stored}
	if err != nil {
		if !schedule.IsPersistenceError(err) {
			writeError(c, err)
			return
		}
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// bind validates the raw body against a schema document and decodes it.
// It writes the 400 response itself and reports false on failure.
func (h *SchedulesHandler) bind(c *gin.Context, validate func(any) error) (schedule.Schedule, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return schedule.Schedule{}, false
	}

	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_json",
			Message: err.Error(),
		})
		return schedule.Schedule{}, false
	}

	if err := validate(payload); err != nil {
		writeError(c, err)
		return schedule.Schedule{}, false
	}

	var sch schedule.Schedule
	if err := json.Unmarshal(body, &sch); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return schedule.Schedule{}, false
	}
	return sch, true
}

func writeError(c *gin.Context, err error) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: ve.Error(),
		})
	case errors.Is(err, schedule.ErrRuntimeUnavailable):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "runtime_unavailable",
			Message: err.Error(),
		})
	case errors.Is(err, schedule.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
