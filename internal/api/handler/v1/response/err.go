package response

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeExpiredQR        = "EXPIRED_QR"
	CodeTooEarly         = "TOO_EARLY"
	CodeMeetingEnded     = "MEETING_ENDED"
	CodeLocationRequired = "LOCATION_REQUIRED"
	CodeOutOfRange       = "OUT_OF_RANGE"
	CodeInternalError    = "INTERNAL_ERROR"
)

type Err struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	Code       string `json:"code"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.StatusText
	}
	return e.Err.Error()
}

// RenderErr writes e and aborts the chain. Server errors are logged with the
// request id and never leak their cause to the client.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("internal server error",
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("path", ctx.FullPath()),
			zap.Error(e.Err),
		)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func newErr(err error, status int, code string) *Err {
	e := &Err{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
		Code:           code,
	}
	if err != nil {
		e.ErrorText = err.Error()
	}
	return e
}

func ErrBadRequest(err error) *Err {
	return newErr(err, http.StatusBadRequest, CodeBadRequest)
}

func ErrUnauthorized(err error) *Err {
	return newErr(err, http.StatusUnauthorized, CodeUnauthorized)
}

func ErrPermissionDenied(err error) *Err {
	return newErr(err, http.StatusForbidden, CodeForbidden)
}

func ErrNotFound(err error) *Err {
	return newErr(err, http.StatusNotFound, CodeNotFound)
}

func ErrExpiredQR(err error) *Err {
	return newErr(err, http.StatusGone, CodeExpiredQR)
}

func ErrTooEarly(err error) *Err {
	return newErr(err, http.StatusTooEarly, CodeTooEarly)
}

func ErrMeetingEnded(err error) *Err {
	return newErr(err, http.StatusGone, CodeMeetingEnded)
}

func ErrLocationRequired(err error) *Err {
	return newErr(err, http.StatusUnprocessableEntity, CodeLocationRequired)
}

func ErrOutOfRange(err error) *Err {
	return newErr(err, http.StatusUnprocessableEntity, CodeOutOfRange)
}

func ErrInternalServerError(err error) *Err {
	e := newErr(err, http.StatusInternalServerError, CodeInternalError)
	e.ErrorText = "something went wrong, please try again later"
	return e
}
