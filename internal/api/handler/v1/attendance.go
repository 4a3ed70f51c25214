package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/request"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type AttendanceService interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.AttendanceResult, error)
}

type AttendanceHandler struct {
	svc AttendanceService
}

func NewAttendanceHandler(svc AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{
		svc: svc,
	}
}

// HandleSubmitAttendance godoc
// @Summary      Submit a proof of presence
// @Description  Records attendance for the authenticated subject. Send either the scanned proof or a join link token.
// @Description  A repeat submission succeeds with alreadyRecorded set.
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Param        request  body      request.SubmitAttendanceRequest  true  "request body"
// @Success      200      {object}  response.SubmitAttendance "already recorded"
// @Success      201      {object}  response.SubmitAttendance "recorded"
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      410      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      425      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /attendance [post]
// @Security BearerAuth
func (h *AttendanceHandler) HandleSubmitAttendance(ctx *gin.Context) {
	subjectID, _, respErr := subjectFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.SubmitAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Submit(ctx.Request.Context(), req.ToSubmission(subjectID))
	if err != nil {
		response.RenderErr(ctx, serviceErr("HandleSubmitAttendance -> h.svc.Submit", err))
		return
	}

	status := http.StatusCreated
	if result.AlreadyRecorded {
		status = http.StatusOK
	}

	ctx.JSON(status, response.NewSubmitAttendance(result))
}
