package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type RotationService interface {
	Status(ctx context.Context, eventID uuid.UUID) (domain.ProofStatus, error)
	Pause(ctx context.Context, eventID uuid.UUID) error
	Resume(ctx context.Context, eventID uuid.UUID) error
}

type ProofHandler struct {
	events   EventService
	rotation RotationService
	feed     *ProofFeed
}

func NewProofHandler(events EventService, rotation RotationService, feed *ProofFeed) *ProofHandler {
	return &ProofHandler{
		events:   events,
		rotation: rotation,
		feed:     feed,
	}
}

// managedEvent loads the event named in the path and checks that the caller
// may manage it.
func (h *ProofHandler) managedEvent(ctx *gin.Context, op string) (domain.Event, *response.Err) {
	subjectID, role, respErr := subjectFromContext(ctx)
	if respErr != nil {
		return domain.Event{}, respErr
	}

	eventID, respErr := parseEventID(ctx)
	if respErr != nil {
		return domain.Event{}, respErr
	}

	event, err := h.events.Get(ctx.Request.Context(), eventID)
	if err != nil {
		return domain.Event{}, serviceErr(op+" -> h.events.Get", err)
	}

	if !canManage(event, subjectID, role) {
		return domain.Event{}, response.ErrPermissionDenied(errNotOwner)
	}

	return event, nil
}

// HandleGetProofStatus godoc
// @Summary      Current proof of a token-channel event
// @Description  Read-only: returns the payload to display and the seconds until the next rotation. Never rotates.
// @Tags         proof
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {object}  response.ProofStatus
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/proof [get]
// @Security BearerAuth
func (h *ProofHandler) HandleGetProofStatus(ctx *gin.Context) {
	event, respErr := h.managedEvent(ctx, "HandleGetProofStatus")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	status, err := h.rotation.Status(ctx.Request.Context(), event.ID)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleGetProofStatus -> h.rotation.Status", err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewProofStatus(status))
}

// HandlePauseRotation godoc
// @Summary      Pause token rotation
// @Description  Freezes the event's current token until resumed.
// @Tags         proof
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {object}  response.ProofStatus
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/proof/pause [post]
// @Security BearerAuth
func (h *ProofHandler) HandlePauseRotation(ctx *gin.Context) {
	h.toggle(ctx, "HandlePauseRotation", h.rotation.Pause)
}

// HandleResumeRotation godoc
// @Summary      Resume token rotation
// @Description  Unfreezes the event and restarts the shared rotation countdown.
// @Tags         proof
// @Produce      json
// @Param        eventID  path      string  true  "Event ID"
// @Success      200      {object}  response.ProofStatus
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/proof/resume [post]
// @Security BearerAuth
func (h *ProofHandler) HandleResumeRotation(ctx *gin.Context) {
	h.toggle(ctx, "HandleResumeRotation", h.rotation.Resume)
}

func (h *ProofHandler) toggle(ctx *gin.Context, op string, fn func(context.Context, uuid.UUID) error) {
	event, respErr := h.managedEvent(ctx, op)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := fn(ctx.Request.Context(), event.ID); err != nil {
		response.RenderErr(ctx, serviceErr(op, err))
		return
	}

	status, err := h.rotation.Status(ctx.Request.Context(), event.ID)
	if err != nil {
		response.RenderErr(ctx, serviceErr(op+" -> h.rotation.Status", err))
		return
	}

	h.feed.Publish(status)

	ctx.JSON(http.StatusOK, response.NewProofStatus(status))
}

// HandleProofFeed godoc
// @Summary      Live proof feed
// @Description  Upgrades to a WebSocket that pushes the proof status after every rotation, for display screens.
// @Description  Browsers may pass the bearer token as the access_token query parameter.
// @Tags         proof
// @Produce      json
// @Param        eventID  path  string  true  "Event ID"
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /events/{eventID}/proof/feed [get]
// @Security BearerAuth
func (h *ProofHandler) HandleProofFeed(ctx *gin.Context) {
	event, respErr := h.managedEvent(ctx, "HandleProofFeed")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	status, err := h.rotation.Status(ctx.Request.Context(), event.ID)
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleProofFeed -> h.rotation.Status", err))
		return
	}

	h.feed.Serve(ctx, event.ID, status)
}
