package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/request"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type EventService interface {
	Create(ctx context.Context, event domain.Event, pregenerate bool) (domain.Event, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Event, error)
	State(event domain.Event) domain.LifecycleState
	ListAttendance(ctx context.Context, eventID uuid.UUID) ([]domain.Attendance, error)
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
	}
}

// HandleCreateEvent godoc
// @Summary      Create an event
// @Description  Creates a dormant event. The lifecycle scheduler activates it at its start time.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateEventRequest  true  "request body"
// @Success      201      {object}  response.Event
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	subjectID, _, respErr := subjectFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.Create(ctx.Request.Context(), req.ToDomain(subjectID), req.PregenerateToken)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleCreateEvent -> h.svc.Create", err))
		return
	}

	ctx.JSON(http.StatusCreated, response.Event{Event: event, State: h.svc.State(event)})
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Description  Returns the event with its lifecycle state derived from the schedule.
// @Tags         events
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {object}  response.Event
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	subjectID, role, respErr := subjectFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	event, err := h.svc.Get(ctx.Request.Context(), eventID)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleGetEvent -> h.svc.Get", err))
		return
	}

	// The join link is a credential; only managers see it.
	if !canManage(event, subjectID, role) {
		event.LinkToken = ""
		event.AllowedSubjects = nil
	}

	ctx.JSON(http.StatusOK, response.Event{Event: event, State: h.svc.State(event)})
}

// HandleListAttendance godoc
// @Summary      List attendance for an event
// @Tags         events,attendance
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {array}   response.Attendance
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/attendance [get]
// @Security BearerAuth
func (h *EventHandler) HandleListAttendance(ctx *gin.Context) {
	subjectID, role, respErr := subjectFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	event, err := h.svc.Get(ctx.Request.Context(), eventID)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleListAttendance -> h.svc.Get", err))
		return
	}

	if !canManage(event, subjectID, role) {
		response.RenderErr(ctx, response.ErrPermissionDenied(errNotOwner))
		return
	}

	attendances, err := h.svc.ListAttendance(ctx.Request.Context(), eventID)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleListAttendance -> h.svc.ListAttendance", err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewAttendances(attendances))
}
