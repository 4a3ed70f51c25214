package service

import (
	"context"
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
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
)

// RotationState is the single lockstep clock shared by every token-channel
// event. The countdown shown to clients is derived from it.
type RotationState struct {
	mu            sync.RWMutex
	lastRotatedAt time.Time
	interval      time.Duration
}

func NewRotationState(interval time.Duration, start time.Time) *RotationState {
	return &RotationState{
		lastRotatedAt: start,
		interval:      interval,
	}
}

func (s *RotationState) Interval() time.Duration {
	return s.interval
}

func (s *RotationState) LastRotatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRotatedAt
}

func (s *RotationState) MarkRotated(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRotatedAt = at
}

// SecondsUntilNext is max(0, interval - (now - lastRotatedAt)), rounded up
// to whole seconds.
func (s *RotationState) SecondsUntilNext(now time.Time) int {
	return secondsUntil(s.interval, s.LastRotatedAt(), now)
}

func secondsUntil(interval time.Duration, last, now time.Time) int {
	remaining := interval - now.Sub(last)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

type RotationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	FindRotatable(ctx context.Context) ([]domain.Event, error)
	RotateToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error)
	SetPaused(ctx context.Context, id uuid.UUID, paused bool) error
}

// RotationMirror shares the rotation instant with replicas that do not run
// the rotation worker.
type RotationMirror interface {
	SaveLastRotatedAt(ctx context.Context, at time.Time) error
	LoadLastRotatedAt(ctx context.Context) (time.Time, error)
}

type RotationReport struct {
	At      time.Time
	Rotated int
	Failed  int
}

type RotationService struct {
	repo    RotationRepository
	issuer  proof.Issuer
	state   *RotationState
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	mirror RotationMirror
	reset  chan struct{}

	listenersMu sync.RWMutex
	listeners   []func(at time.Time)
}

func NewRotationService(repo RotationRepository, issuer proof.Issuer, state *RotationState, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *RotationService {
	return &RotationService{
		repo:    repo,
		issuer:  issuer,
		state:   state,
		clock:   clk,
		log:     log.Named("rotation"),
		metrics: m,
		reset:   make(chan struct{}, 1),
	}
}

// WithMirror enables publishing and reading the rotation instant through m.
func (s *RotationService) WithMirror(m RotationMirror) *RotationService {
	s.mirror = m
	return s
}

// OnRotated registers fn to be called after every tick.
func (s *RotationService) OnRotated(fn func(at time.Time)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Run rotates every interval until ctx is done. Resume restarts the timer
// so the next rotation lands a full interval after the reset. A resume
// handled by another replica reaches this loop through the mirror.
func (s *RotationService) Run(ctx context.Context) {
	interval := s.state.Interval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	s.log.Info("starting token rotation", zap.Duration("interval", interval))
	defer s.log.Info("stopping token rotation")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reset:
			resetTimer(timer, interval)
		case <-timer.C:
			if wait := s.syncFromMirror(ctx); wait > 0 {
				timer.Reset(wait)
				continue
			}
			s.safeTick(ctx)
			timer.Reset(interval)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// syncFromMirror adopts a newer rotation instant written by another replica
// and returns how long to wait before rotating. Zero means rotate now.
func (s *RotationService) syncFromMirror(ctx context.Context) time.Duration {
	if s.mirror == nil {
		return 0
	}

	at, err := s.mirror.LoadLastRotatedAt(ctx)
	if err != nil {
		s.log.Debug("rotation mirror unavailable", zap.Error(err))
		return 0
	}
	if !at.After(s.state.LastRotatedAt()) {
		return 0
	}

	s.state.MarkRotated(at)
	remaining := s.state.Interval() - s.clock.Now().Sub(at)
	if remaining <= 0 {
		return 0
	}

	s.log.Info("adopted rotation instant from another replica", zap.Time("at", at), zap.Duration("wait", remaining))

	return remaining
}

func (s *RotationService) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.WorkerFailures.WithLabelValues("rotation").Inc()
			s.log.Error("rotation tick panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	s.Tick(ctx)
}

// Tick issues a fresh token to every rotatable event, all bound to the same
// issuance instant, and records that instant whether or not anything rotated.
func (s *RotationService) Tick(ctx context.Context) RotationReport {
	now := s.clock.Now()
	report := RotationReport{At: now}

	events, err := s.repo.FindRotatable(ctx)
	if err != nil {
		report.Failed++
		s.fail(fmt.Errorf("s.repo.FindRotatable -> %w", err))
	}

	for _, e := range events {
		token, err := s.issuer.NewToken()
		if err != nil {
			report.Failed++
			s.fail(fmt.Errorf("s.issuer.NewToken -> %w", err), zap.Stringer("event_id", e.ID))
			continue
		}

		rotated, err := s.repo.RotateToken(ctx, e.ID, token, now)
		if err != nil {
			report.Failed++
			s.fail(fmt.Errorf("s.repo.RotateToken -> %w", err), zap.Stringer("event_id", e.ID))
			continue
		}
		if rotated {
			report.Rotated++
		}
	}

	s.markRotated(ctx, now)
	s.metrics.TokensRotated.Add(float64(report.Rotated))

	s.log.Debug("rotation tick", zap.Int("rotated", report.Rotated), zap.Int("failed", report.Failed))

	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(now)
	}

	return report
}

// Status reports the current proof of a token-channel event. It never rotates.
func (s *RotationService) Status(ctx context.Context, eventID uuid.UUID) (domain.ProofStatus, error) {
	e, err := s.tokenEvent(ctx, eventID)
	if err != nil {
		return domain.ProofStatus{}, err
	}

	now := s.clock.Now()
	status := domain.ProofStatus{
		EventID: e.ID,
		Paused:  e.Paused,
	}

	if e.ProofToken != "" {
		issuedAt := now
		if e.ProofIssuedAt != nil {
			issuedAt = *e.ProofIssuedAt
		}
		status.CurrentProof, err = proof.Encode(proof.Payload{
			EventID:  e.ID,
			Token:    e.ProofToken,
			IssuedAt: issuedAt,
		})
		if err != nil {
			return domain.ProofStatus{}, fmt.Errorf("proof.Encode -> %w", err)
		}
	}

	if !e.Paused {
		status.SecondsUntilNextRotation = secondsUntil(s.state.Interval(), s.lastRotatedAt(ctx), now)
	}

	return status, nil
}

func (s *RotationService) Pause(ctx context.Context, eventID uuid.UUID) error {
	if _, err := s.tokenEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.repo.SetPaused(ctx, eventID, true); err != nil {
		return s.notFoundOr(err, eventID, "s.repo.SetPaused")
	}

	s.log.Info("rotation paused", zap.Stringer("event_id", eventID))

	return nil
}

// Resume unfreezes the event and restarts the shared countdown.
func (s *RotationService) Resume(ctx context.Context, eventID uuid.UUID) error {
	if _, err := s.tokenEvent(ctx, eventID); err != nil {
		return err
	}

	if err := s.repo.SetPaused(ctx, eventID, false); err != nil {
		return s.notFoundOr(err, eventID, "s.repo.SetPaused")
	}

	s.markRotated(ctx, s.clock.Now())
	select {
	case s.reset <- struct{}{}:
	default:
	}

	s.log.Info("rotation resumed", zap.Stringer("event_id", eventID))

	return nil
}

func (s *RotationService) tokenEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, s.notFoundOr(err, eventID, "s.repo.GetByID")
	}
	if e.Channel != domain.ChannelPresenceToken {
		return domain.Event{}, fmt.Errorf("%w: event %s does not use rotating tokens", ErrBadRequest, eventID)
	}

	return e, nil
}

func (s *RotationService) notFoundOr(err error, eventID uuid.UUID, op string) error {
	if errors.Is(err, ErrEventNotFound) {
		return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	return fmt.Errorf("%s -> %w", op, err)
}

func (s *RotationService) markRotated(ctx context.Context, at time.Time) {
	s.state.MarkRotated(at)
	s.metrics.LastRotation.Set(float64(at.Unix()))

	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveLastRotatedAt(ctx, at); err != nil {
		s.log.Warn("failed to mirror rotation instant", zap.Error(err))
	}
}

// lastRotatedAt is the later of the local instant and the mirrored one, so
// every replica reports the same countdown after a resume anywhere.
func (s *RotationService) lastRotatedAt(ctx context.Context) time.Time {
	local := s.state.LastRotatedAt()
	if s.mirror == nil {
		return local
	}

	at, err := s.mirror.LoadLastRotatedAt(ctx)
	if err != nil {
		s.log.Debug("rotation mirror unavailable, using local state", zap.Error(err))
		return local
	}
	if at.After(local) {
		return at
	}

	return local
}

func (s *RotationService) fail(err error, fields ...zap.Field) {
	s.metrics.WorkerFailures.WithLabelValues("rotation").Inc()
	s.log.Error("token rotation failed", append(fields, zap.Error(err))...)
}
