package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository/dao"
)

var (
	ErrAttendanceExists   = dao.ErrAttendanceExists
	ErrAttendanceNotFound = dao.ErrAttendanceNotFound
)

type AttendanceDAO interface {
	Insert(ctx context.Context, attendance dao.Attendance) (dao.Attendance, error)
	FindByEventAndSubject(ctx context.Context, eventID uuid.UUID, subjectID string) (dao.Attendance, error)
	FindByEvent(ctx context.Context, eventID uuid.UUID) ([]dao.Attendance, error)
}

type AttendanceRepository struct {
	dao AttendanceDAO
}

func NewAttendanceRepository(dao AttendanceDAO) *AttendanceRepository {
	return &AttendanceRepository{
		dao: dao,
	}
}

func (r *AttendanceRepository) Insert(ctx context.Context, attendance domain.Attendance) (domain.Attendance, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(attendance))
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *AttendanceRepository) FindByEventAndSubject(ctx context.Context, eventID uuid.UUID, subjectID string) (domain.Attendance, error) {
	attendance, err := r.dao.FindByEventAndSubject(ctx, eventID, subjectID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.FindByEventAndSubject -> %w", err)
	}

	return r.daoToDomain(attendance), nil
}

func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Attendance, error) {
	attendances, err := r.dao.FindByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEvent -> %w", err)
	}

	result := make([]domain.Attendance, len(attendances))
	for i, a := range attendances {
		result[i] = r.daoToDomain(a)
	}

	return result, nil
}

func (r *AttendanceRepository) domainToDao(a domain.Attendance) dao.Attendance {
	attendance := dao.Attendance{
		ID:         a.ID,
		EventID:    a.EventID,
		SubjectID:  a.SubjectID,
		Method:     string(a.Method),
		RecordedAt: a.RecordedAt,
	}

	if a.Location != nil {
		lat, lng := a.Location.Lat, a.Location.Lng
		attendance.Lat = &lat
		attendance.Lng = &lng
		attendance.Accuracy = a.Location.Accuracy
	}

	return attendance
}

func (r *AttendanceRepository) daoToDomain(a dao.Attendance) domain.Attendance {
	attendance := domain.Attendance{
		ID:         a.ID,
		EventID:    a.EventID,
		SubjectID:  a.SubjectID,
		Method:     domain.Method(a.Method),
		RecordedAt: a.RecordedAt.UTC(),
	}

	if a.Lat != nil && a.Lng != nil {
		attendance.Location = &domain.Location{
			Lat:      *a.Lat,
			Lng:      *a.Lng,
			Accuracy: a.Accuracy,
		}
	}

	return attendance
}
