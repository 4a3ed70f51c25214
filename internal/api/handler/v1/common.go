package v1

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/service"
)

var (
	errMissingSubject = errors.New("no authenticated subject")
	errNotOwner       = errors.New("only the event owner or an admin can do this")
)

func subjectFromContext(ctx *gin.Context) (string, string, *response.Err) {
	subjectID := ctx.GetString(middleware.CtxKeySubjectID)
	if subjectID == "" {
		return "", "", response.ErrUnauthorized(errMissingSubject)
	}

	return subjectID, ctx.GetString(middleware.CtxKeyRole), nil
}

func parseEventID(ctx *gin.Context) (uuid.UUID, *response.Err) {
	id, err := uuid.Parse(ctx.Param("eventID"))
	if err != nil {
		return uuid.Nil, response.ErrBadRequest(fmt.Errorf("invalid event ID: %w", err))
	}

	return id, nil
}

func canManage(event domain.Event, subjectID, role string) bool {
	return role == middleware.RoleAdmin || event.OwnerID == subjectID
}

// serviceErr maps service outcomes onto response errors. op names the call
// site for the server log.
func serviceErr(op string, err error) *response.Err {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return response.ErrBadRequest(err)
	case errors.Is(err, service.ErrNotFound):
		return response.ErrNotFound(err)
	case errors.Is(err, service.ErrExpiredQR):
		return response.ErrExpiredQR(err)
	case errors.Is(err, service.ErrTooEarly):
		return response.ErrTooEarly(err)
	case errors.Is(err, service.ErrMeetingEnded):
		return response.ErrMeetingEnded(err)
	case errors.Is(err, service.ErrForbidden):
		return response.ErrPermissionDenied(err)
	case errors.Is(err, service.ErrLocationRequired):
		return response.ErrLocationRequired(err)
	case errors.Is(err, service.ErrOutOfRange):
		return response.ErrOutOfRange(err)
	default:
		return response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err))
	}
}
