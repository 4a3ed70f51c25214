package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAttendanceExists   = errors.New("attendance already recorded")
	ErrAttendanceNotFound = errors.New("attendance not found")
)

const attendanceUniqueConstraint = "uq_attendance_event_subject"

type Attendance struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_event_subject,priority:1"`
	SubjectID  string    `gorm:"not null;uniqueIndex:uq_attendance_event_subject,priority:2"`
	Method     string    `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null"`
	Lat        *float64
	Lng        *float64
	Accuracy   *float64
}

func (Attendance) TableName() string {
	return "attendances"
}

func (a *Attendance) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.RecordedAt = a.RecordedAt.UTC()
	return nil
}

type AttendanceDAO struct {
	db *gorm.DB
}

func NewAttendanceDAO(db *gorm.DB) *AttendanceDAO {
	return &AttendanceDAO{
		db: db,
	}
}

// Insert relies on the (event_id, subject_id) unique index; a second insert
// for the same pair returns ErrAttendanceExists.
func (d *AttendanceDAO) Insert(ctx context.Context, attendance Attendance) (Attendance, error) {
	result := d.db.WithContext(ctx).Create(&attendance)
	if result.Error != nil {
		if isUniqueViolation(result.Error, attendanceUniqueConstraint) {
			return Attendance{}, ErrAttendanceExists
		}

		return Attendance{}, result.Error
	}

	return attendance, nil
}

func (d *AttendanceDAO) FindByEventAndSubject(ctx context.Context, eventID uuid.UUID, subjectID string) (Attendance, error) {
	var attendance Attendance

	result := d.db.WithContext(ctx).
		Where("event_id = ? AND subject_id = ?", eventID, subjectID).
		First(&attendance)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendance{}, ErrAttendanceNotFound
		}

		return Attendance{}, result.Error
	}

	return attendance, nil
}

func (d *AttendanceDAO) FindByEvent(ctx context.Context, eventID uuid.UUID) ([]Attendance, error) {
	var attendances []Attendance

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("recorded_at asc").
		Find(&attendances)
	if result.Error != nil {
		return nil, result.Error
	}

	return attendances, nil
}
