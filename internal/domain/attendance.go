package domain

import (
	"time"

	"github.com/google/uuid"
)

type Method string

const (
	MethodToken Method = "token"
	MethodLink  Method = "link"
)

type Location struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type Attendance struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	SubjectID  string    `json:"subject_id"`
	Method     Method    `json:"method"`
	RecordedAt time.Time `json:"recorded_at"`
	Location   *Location `json:"location,omitempty"`
}

type AttendanceResult struct {
	Recorded        bool
	AlreadyRecorded bool
	Attendance      Attendance
}
