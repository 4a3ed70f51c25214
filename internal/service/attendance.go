package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/clock"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/geo"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository"
)

var (
	ErrAttendanceExists   = repository.ErrAttendanceExists
	ErrAttendanceNotFound = repository.ErrAttendanceNotFound
)

type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	GetByLinkToken(ctx context.Context, linkToken string) (domain.Event, error)
}

type AttendanceRepository interface {
	Insert(ctx context.Context, attendance domain.Attendance) (domain.Attendance, error)
	FindByEventAndSubject(ctx context.Context, eventID uuid.UUID, subjectID string) (domain.Attendance, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Attendance, error)
}

// publishTimeout bounds one background publish of a committed record.
const publishTimeout = 15 * time.Second

// RecordPublisher is notified after a new record is committed.
type RecordPublisher interface {
	PublishRecorded(ctx context.Context, attendance domain.Attendance) error
}

type AttendanceService struct {
	events    EventLookup
	repo      AttendanceRepository
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
	publisher RecordPublisher
	inflight  sync.WaitGroup
}

func NewAttendanceService(events EventLookup, repo AttendanceRepository, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *AttendanceService {
	return &AttendanceService{
		events:  events,
		repo:    repo,
		clock:   clk,
		log:     log.Named("attendance"),
		metrics: m,
	}
}

func (s *AttendanceService) WithPublisher(p RecordPublisher) *AttendanceService {
	s.publisher = p
	return s
}

// Submit validates a proof and records attendance at most once per
// (event, subject). A repeat submission succeeds with AlreadyRecorded set.
func (s *AttendanceService) Submit(ctx context.Context, sub domain.Submission) (domain.AttendanceResult, error) {
	result, err := s.submit(ctx, sub)

	outcome := Outcome(err)
	switch {
	case err != nil:
	case result.AlreadyRecorded:
		outcome = "already_recorded"
	default:
		outcome = "recorded"
	}
	s.metrics.Submissions.WithLabelValues(outcome).Inc()

	return result, err
}

func (s *AttendanceService) submit(ctx context.Context, sub domain.Submission) (domain.AttendanceResult, error) {
	if sub.SubjectID == "" {
		return domain.AttendanceResult{}, fmt.Errorf("%w: missing subject", ErrBadRequest)
	}
	if sub.Location != nil && !validLocation(*sub.Location) {
		return domain.AttendanceResult{}, fmt.Errorf("%w: invalid coordinates", ErrBadRequest)
	}

	p, err := parseProof(sub)
	if err != nil {
		return domain.AttendanceResult{}, err
	}

	event, err := s.resolveEvent(ctx, p)
	if err != nil {
		return domain.AttendanceResult{}, err
	}

	if event.Channel != p.Channel() {
		return domain.AttendanceResult{}, fmt.Errorf("%w: event %s does not accept %s proofs", ErrBadRequest, event.ID, p.Channel())
	}

	if tp, ok := p.(domain.TokenProof); ok {
		if event.ProofToken == "" || subtle.ConstantTimeCompare([]byte(tp.Token), []byte(event.ProofToken)) != 1 {
			return domain.AttendanceResult{}, ErrExpiredQR
		}
	}

	now := s.clock.Now()
	switch event.StateAt(now) {
	case domain.StateDormant:
		return domain.AttendanceResult{}, ErrTooEarly
	case domain.StateEnded:
		return domain.AttendanceResult{}, ErrMeetingEnded
	}

	if !event.Allows(sub.SubjectID) {
		return domain.AttendanceResult{}, ErrForbidden
	}

	if event.Geofence != nil {
		if sub.Location == nil {
			return domain.AttendanceResult{}, ErrLocationRequired
		}

		center := geo.Coordinate{Lat: event.Geofence.Lat, Lng: event.Geofence.Lng}
		at := geo.Coordinate{Lat: sub.Location.Lat, Lng: sub.Location.Lng}
		if ok, d := geo.Within(center, at, event.Geofence.RadiusMeters); !ok {
			return domain.AttendanceResult{}, fmt.Errorf("%w: you are %.0fm away, the limit is %.0fm", ErrOutOfRange, d, event.Geofence.RadiusMeters)
		}
	}

	existing, err := s.repo.FindByEventAndSubject(ctx, event.ID, sub.SubjectID)
	switch {
	case err == nil:
		return domain.AttendanceResult{AlreadyRecorded: true, Attendance: existing}, nil
	case !errors.Is(err, ErrAttendanceNotFound):
		return domain.AttendanceResult{}, fmt.Errorf("s.repo.FindByEventAndSubject -> %w", err)
	}

	created, err := s.repo.Insert(ctx, domain.Attendance{
		EventID:    event.ID,
		SubjectID:  sub.SubjectID,
		Method:     methodOf(p),
		RecordedAt: now,
		Location:   sub.Location,
	})
	if err != nil {
		if errors.Is(err, ErrAttendanceExists) {
			return s.alreadyRecorded(ctx, event.ID, sub.SubjectID)
		}

		return domain.AttendanceResult{}, fmt.Errorf("s.repo.Insert -> %w", err)
	}

	s.publish(ctx, created)

	return domain.AttendanceResult{Recorded: true, Attendance: created}, nil
}

// alreadyRecorded handles a lost insert race: another submission for the
// same pair committed between the lookup and the insert.
func (s *AttendanceService) alreadyRecorded(ctx context.Context, eventID uuid.UUID, subjectID string) (domain.AttendanceResult, error) {
	existing, err := s.repo.FindByEventAndSubject(ctx, eventID, subjectID)
	if err != nil {
		return domain.AttendanceResult{}, fmt.Errorf("s.repo.FindByEventAndSubject -> %w", err)
	}

	return domain.AttendanceResult{AlreadyRecorded: true, Attendance: existing}, nil
}

func (s *AttendanceService) resolveEvent(ctx context.Context, p domain.Proof) (domain.Event, error) {
	var (
		event domain.Event
		err   error
	)

	switch p := p.(type) {
	case domain.TokenProof:
		event, err = s.events.GetByID(ctx, p.EventID)
	case domain.LinkProof:
		event, err = s.events.GetByLinkToken(ctx, p.LinkToken)
	}
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return domain.Event{}, fmt.Errorf("%w: event", ErrNotFound)
		}

		return domain.Event{}, fmt.Errorf("s.events.Get -> %w", err)
	}

	return event, nil
}

// publish hands a committed record to the publisher off the request path.
// The record is already durable, so the request's cancellation must not
// drop the message.
func (s *AttendanceService) publish(ctx context.Context, a domain.Attendance) {
	if s.publisher == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishRecorded(pubCtx, a); err != nil {
			s.log.Warn("failed to publish attendance record",
				zap.Stringer("event_id", a.EventID),
				zap.String("subject_id", a.SubjectID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every background publish has finished. Call it before
// closing the publisher.
func (s *AttendanceService) Wait() {
	s.inflight.Wait()
}

// parseProof accepts exactly one of the two proof shapes.
func parseProof(sub domain.Submission) (domain.Proof, error) {
	switch {
	case sub.RawProof != "" && sub.LinkToken != "":
		return nil, fmt.Errorf("%w: provide either a proof or a link token, not both", ErrBadRequest)
	case sub.RawProof != "":
		payload, err := proof.Decode(sub.RawProof)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}

		return domain.TokenProof{
			EventID:  payload.EventID,
			Token:    payload.Token,
			IssuedAt: payload.IssuedAt,
		}, nil
	case sub.LinkToken != "":
		return domain.LinkProof{LinkToken: sub.LinkToken}, nil
	default:
		return nil, fmt.Errorf("%w: missing proof", ErrBadRequest)
	}
}

func methodOf(p domain.Proof) domain.Method {
	if p.Channel() == domain.ChannelJoinLink {
		return domain.MethodLink
	}
	return domain.MethodToken
}

func validLocation(l domain.Location) bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return false
	}
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return false
	}
	return l.Accuracy == nil || *l.Accuracy >= 0
}
