package service

import (
	"errors"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository"
)

// Outcomes a caller can act on. Anything else returned by the service is an
// internal error.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrNotFound         = errors.New("not found")
	ErrExpiredQR        = errors.New("proof has expired")
	ErrTooEarly         = errors.New("event has not started yet")
	ErrMeetingEnded     = errors.New("event has already ended")
	ErrForbidden        = errors.New("subject is not eligible for this event")
	ErrLocationRequired = errors.New("location is required for this event")
	ErrOutOfRange       = errors.New("location is outside the event geofence")
)

var (
	ErrEventNotFound     = repository.ErrEventNotFound
	ErrLinkTokenConflict = repository.ErrLinkTokenConflict
)

// Outcome returns a stable label for err, used for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpiredQR):
		return "expired_qr"
	case errors.Is(err, ErrTooEarly):
		return "too_early"
	case errors.Is(err, ErrMeetingEnded):
		return "meeting_ended"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrLocationRequired):
		return "location_required"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return "internal_error"
	}
}
