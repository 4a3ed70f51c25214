package response

import (
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type Event struct {
	domain.Event
	State domain.LifecycleState `json:"state"`
}
