package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository/dao"
)

var (
	ErrEventNotFound     = dao.ErrEventNotFound
	ErrLinkTokenConflict = dao.ErrLinkTokenConflict
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (dao.Event, error)
	FindByLinkToken(ctx context.Context, linkToken string) (dao.Event, error)
	FindDormantDue(ctx context.Context, now time.Time) ([]dao.Event, error)
	FindActive(ctx context.Context) ([]dao.Event, error)
	Activate(ctx context.Context, id uuid.UUID, token, linkToken string, issuedAt time.Time) (bool, error)
	End(ctx context.Context, id uuid.UUID) (bool, error)
	FindRotatable(ctx context.Context) ([]dao.Event, error)
	RotateToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error)
	SetPaused(ctx context.Context, id uuid.UUID, paused bool) error
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	event, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(event), nil
}

func (r *EventRepository) GetByLinkToken(ctx context.Context, linkToken string) (domain.Event, error) {
	event, err := r.dao.FindByLinkToken(ctx, linkToken)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByLinkToken -> %w", err)
	}

	return r.daoToDomain(event), nil
}

func (r *EventRepository) FindDormantDue(ctx context.Context, now time.Time) ([]domain.Event, error) {
	events, err := r.dao.FindDormantDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindDormantDue -> %w", err)
	}

	return r.daosToDomain(events), nil
}

func (r *EventRepository) FindActive(ctx context.Context) ([]domain.Event, error) {
	events, err := r.dao.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindActive -> %w", err)
	}

	return r.daosToDomain(events), nil
}

func (r *EventRepository) Activate(ctx context.Context, id uuid.UUID, token, linkToken string, issuedAt time.Time) (bool, error) {
	ok, err := r.dao.Activate(ctx, id, token, linkToken, issuedAt)
	if err != nil {
		return false, fmt.Errorf("r.dao.Activate -> %w", err)
	}

	return ok, nil
}

func (r *EventRepository) End(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := r.dao.End(ctx, id)
	if err != nil {
		return false, fmt.Errorf("r.dao.End -> %w", err)
	}

	return ok, nil
}

func (r *EventRepository) FindRotatable(ctx context.Context) ([]domain.Event, error) {
	events, err := r.dao.FindRotatable(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindRotatable -> %w", err)
	}

	return r.daosToDomain(events), nil
}

func (r *EventRepository) RotateToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error) {
	ok, err := r.dao.RotateToken(ctx, id, token, issuedAt)
	if err != nil {
		return false, fmt.Errorf("r.dao.RotateToken -> %w", err)
	}

	return ok, nil
}

func (r *EventRepository) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	if err := r.dao.SetPaused(ctx, id, paused); err != nil {
		return fmt.Errorf("r.dao.SetPaused -> %w", err)
	}

	return nil
}

func (r *EventRepository) domainToDao(e domain.Event) dao.Event {
	event := dao.Event{
		ID:              e.ID,
		Title:           e.Title,
		OwnerID:         e.OwnerID,
		StartsAt:        e.Schedule.StartsAt,
		DurationMinutes: e.Schedule.DurationMinutes,
		IsActive:        e.IsActive,
		Channel:         string(e.Channel),
		ProofToken:      e.ProofToken,
		ProofIssuedAt:   e.ProofIssuedAt,
		Paused:          e.Paused,
		Eligibility:     string(e.Eligibility),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	if e.LinkToken != "" {
		linkToken := e.LinkToken
		event.LinkToken = &linkToken
	}

	if e.Geofence != nil {
		lat, lng, radius := e.Geofence.Lat, e.Geofence.Lng, e.Geofence.RadiusMeters
		event.GeofenceLat = &lat
		event.GeofenceLng = &lng
		event.GeofenceRadiusM = &radius
	}

	for _, subjectID := range e.AllowedSubjects {
		event.AllowedSubjects = append(event.AllowedSubjects, dao.EventAllowedSubject{
			EventID:   e.ID,
			SubjectID: subjectID,
		})
	}

	return event
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	event := domain.Event{
		ID:      e.ID,
		Title:   e.Title,
		OwnerID: e.OwnerID,
		Schedule: domain.Schedule{
			StartsAt:        e.StartsAt.UTC(),
			DurationMinutes: e.DurationMinutes,
		},
		Channel:       domain.Channel(e.Channel),
		IsActive:      e.IsActive,
		ProofToken:    e.ProofToken,
		ProofIssuedAt: e.ProofIssuedAt,
		Paused:        e.Paused,
		Eligibility:   domain.Eligibility(e.Eligibility),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}

	if e.LinkToken != nil {
		event.LinkToken = *e.LinkToken
	}

	if e.GeofenceLat != nil && e.GeofenceLng != nil && e.GeofenceRadiusM != nil {
		event.Geofence = &domain.Geofence{
			Lat:          *e.GeofenceLat,
			Lng:          *e.GeofenceLng,
			RadiusMeters: *e.GeofenceRadiusM,
		}
	}

	for _, s := range e.AllowedSubjects {
		event.AllowedSubjects = append(event.AllowedSubjects, s.SubjectID)
	}

	return event
}

func (r *EventRepository) daosToDomain(events []dao.Event) []domain.Event {
	domainEvents := make([]domain.Event, len(events))
	for i, e := range events {
		domainEvents[i] = r.daoToDomain(e)
	}
	return domainEvents
}
