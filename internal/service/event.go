package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/clock"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
)

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
}

type AttendanceLister interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Attendance, error)
}

type EventService struct {
	repo        EventRepository
	attendances AttendanceLister
	issuer      proof.Issuer
	clock       clock.Clock
}

func NewEventService(repo EventRepository, attendances AttendanceLister, issuer proof.Issuer, clk clock.Clock) *EventService {
	return &EventService{
		repo:        repo,
		attendances: attendances,
		issuer:      issuer,
		clock:       clk,
	}
}

// Create stores a dormant event. When pregenerate is set on a token-channel
// event a token is issued right away, so it rotates before the event starts.
func (s *EventService) Create(ctx context.Context, event domain.Event, pregenerate bool) (domain.Event, error) {
	event.AllowedSubjects = uniqueSubjects(event.AllowedSubjects)
	if err := validateEvent(event); err != nil {
		return domain.Event{}, err
	}

	event.ID = uuid.Nil
	event.IsActive = false
	event.Paused = false
	event.ProofToken = ""
	event.ProofIssuedAt = nil
	event.LinkToken = ""
	event.Schedule.StartsAt = event.Schedule.StartsAt.UTC()

	if pregenerate {
		if event.Channel != domain.ChannelPresenceToken {
			return domain.Event{}, fmt.Errorf("%w: only token-channel events can pregenerate a token", ErrBadRequest)
		}

		token, err := s.issuer.NewToken()
		if err != nil {
			return domain.Event{}, fmt.Errorf("s.issuer.NewToken -> %w", err)
		}
		issuedAt := s.clock.Now()
		event.ProofToken = token
		event.ProofIssuedAt = &issuedAt
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *EventService) Get(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return domain.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
		}

		return domain.Event{}, fmt.Errorf("s.repo.GetByID -> %w", err)
	}

	return event, nil
}

// State derives the lifecycle state of event at the current instant.
func (s *EventService) State(event domain.Event) domain.LifecycleState {
	return event.StateAt(s.clock.Now())
}

func (s *EventService) ListAttendance(ctx context.Context, eventID uuid.UUID) ([]domain.Attendance, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	attendances, err := s.attendances.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.attendances.ListByEvent -> %w", err)
	}

	return attendances, nil
}

func validateEvent(e domain.Event) error {
	switch {
	case e.Title == "":
		return fmt.Errorf("%w: title is required", ErrBadRequest)
	case e.OwnerID == "":
		return fmt.Errorf("%w: owner is required", ErrBadRequest)
	case e.Schedule.StartsAt.IsZero():
		return fmt.Errorf("%w: start is required", ErrBadRequest)
	case e.Schedule.DurationMinutes <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrBadRequest)
	}

	switch e.Channel {
	case domain.ChannelPresenceToken, domain.ChannelJoinLink:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrBadRequest, e.Channel)
	}

	if e.Geofence != nil {
		if e.Channel != domain.ChannelPresenceToken {
			return fmt.Errorf("%w: a geofence requires the presence-token channel", ErrBadRequest)
		}
		if e.Geofence.RadiusMeters <= 0 {
			return fmt.Errorf("%w: geofence radius must be positive", ErrBadRequest)
		}
		if !validLocation(domain.Location{Lat: e.Geofence.Lat, Lng: e.Geofence.Lng}) {
			return fmt.Errorf("%w: invalid geofence center", ErrBadRequest)
		}
	}

	switch e.Eligibility {
	case domain.EligibilityOpen:
	case domain.EligibilityRestricted:
		if len(e.AllowedSubjects) == 0 {
			return fmt.Errorf("%w: a restricted event needs an allow-list", ErrBadRequest)
		}
	default:
		return fmt.Errorf("%w: unknown eligibility %q", ErrBadRequest, e.Eligibility)
	}

	return nil
}

func uniqueSubjects(subjects []string) []string {
	if len(subjects) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(subjects))
	unique := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}
