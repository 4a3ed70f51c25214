package response

import (
	"time"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type Attendance struct {
	ID         string           `json:"id"`
	EventID    string           `json:"eventId"`
	SubjectID  string           `json:"subjectId"`
	Method     domain.Method    `json:"method"`
	RecordedAt time.Time        `json:"recordedAt"`
	Location   *domain.Location `json:"location,omitempty"`
}

type SubmitAttendance struct {
	Recorded        bool       `json:"recorded"`
	AlreadyRecorded bool       `json:"alreadyRecorded"`
	Attendance      Attendance `json:"attendance"`
}

type ProofStatus struct {
	EventID                  string `json:"eventId"`
	CurrentProof             string `json:"currentProof"`
	Paused                   bool   `json:"paused"`
	SecondsUntilNextRotation int    `json:"secondsUntilNextRotation"`
}

func NewAttendance(a domain.Attendance) Attendance {
	return Attendance{
		ID:         a.ID.String(),
		EventID:    a.EventID.String(),
		SubjectID:  a.SubjectID,
		Method:     a.Method,
		RecordedAt: a.RecordedAt,
		Location:   a.Location,
	}
}

func NewAttendances(attendances []domain.Attendance) []Attendance {
	out := make([]Attendance, len(attendances))
	for i, a := range attendances {
		out[i] = NewAttendance(a)
	}
	return out
}

func NewSubmitAttendance(r domain.AttendanceResult) SubmitAttendance {
	return SubmitAttendance{
		Recorded:        r.Recorded,
		AlreadyRecorded: r.AlreadyRecorded,
		Attendance:      NewAttendance(r.Attendance),
	}
}

func NewProofStatus(s domain.ProofStatus) ProofStatus {
	return ProofStatus{
		EventID:                  s.EventID.String(),
		CurrentProof:             s.CurrentProof,
		Paused:                   s.Paused,
		SecondsUntilNextRotation: s.SecondsUntilNextRotation,
	}
}
