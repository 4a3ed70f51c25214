package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/clock"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
)

type LifecycleRepository interface {
	FindDormantDue(ctx context.Context, now time.Time) ([]domain.Event, error)
	FindActive(ctx context.Context) ([]domain.Event, error)
	Activate(ctx context.Context, id uuid.UUID, token, linkToken string, issuedAt time.Time) (bool, error)
	End(ctx context.Context, id uuid.UUID) (bool, error)
}

type LifecycleReport struct {
	Activated int
	Ended     int
	// Skipped counts dormant events whose whole window elapsed unobserved.
	Skipped int
	Failed  int
}

// LifecycleScheduler projects each event's derived state onto the cached
// active flag and issues or clears its proof channel.
type LifecycleScheduler struct {
	repo    LifecycleRepository
	issuer  proof.Issuer
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewLifecycleScheduler(repo LifecycleRepository, issuer proof.Issuer, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *LifecycleScheduler {
	return &LifecycleScheduler{
		repo:    repo,
		issuer:  issuer,
		clock:   clk,
		log:     log.Named("lifecycle"),
		metrics: m,
	}
}

// Run ticks once immediately and then every interval until ctx is done.
func (s *LifecycleScheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("starting lifecycle scheduler", zap.Duration("interval", interval))
	defer s.log.Info("stopping lifecycle scheduler")

	s.safeTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

func (s *LifecycleScheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.WorkerFailures.WithLabelValues("lifecycle").Inc()
			s.log.Error("lifecycle tick panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	s.Tick(ctx)
}

// Tick runs one pass. Failures are logged per event and never returned.
func (s *LifecycleScheduler) Tick(ctx context.Context) LifecycleReport {
	var report LifecycleReport
	now := s.clock.Now()

	dormant, err := s.repo.FindDormantDue(ctx, now)
	if err != nil {
		report.Failed++
		s.fail(fmt.Errorf("s.repo.FindDormantDue -> %w", err))
	}
	for _, e := range dormant {
		switch e.StateAt(now) {
		case domain.StateActive:
			activated, err := s.activate(ctx, e, now)
			if err != nil {
				report.Failed++
				s.fail(err, zap.Stringer("event_id", e.ID))
				continue
			}
			if activated {
				report.Activated++
				s.metrics.LifecycleTransitions.WithLabelValues("activated").Inc()
			}
		case domain.StateEnded:
			report.Skipped++
			s.metrics.LifecycleTransitions.WithLabelValues("skipped").Inc()
			s.log.Debug("window elapsed before activation, leaving dormant", zap.Stringer("event_id", e.ID))
		}
	}

	active, err := s.repo.FindActive(ctx)
	if err != nil {
		report.Failed++
		s.fail(fmt.Errorf("s.repo.FindActive -> %w", err))
	}
	for _, e := range active {
		if e.StateAt(now) != domain.StateEnded {
			continue
		}

		ended, err := s.repo.End(ctx, e.ID)
		if err != nil {
			report.Failed++
			s.fail(fmt.Errorf("s.repo.End -> %w", err), zap.Stringer("event_id", e.ID))
			continue
		}
		if ended {
			report.Ended++
			s.metrics.LifecycleTransitions.WithLabelValues("ended").Inc()
		}
	}

	s.log.Debug("lifecycle tick",
		zap.Int("activated", report.Activated),
		zap.Int("ended", report.Ended),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)

	return report
}

// activate flips e active, issuing its proof channel unless one already
// exists. A join link colliding with another event's is reissued once.
func (s *LifecycleScheduler) activate(ctx context.Context, e domain.Event, now time.Time) (bool, error) {
	switch e.Channel {
	case domain.ChannelPresenceToken, domain.ChannelJoinLink:
	default:
		return false, fmt.Errorf("unknown channel %q", e.Channel)
	}

	for attempt := 0; ; attempt++ {
		token, linkToken, err := s.issueChannel(e)
		if err != nil {
			return false, err
		}

		ok, err := s.repo.Activate(ctx, e.ID, token, linkToken, now)
		if errors.Is(err, ErrLinkTokenConflict) && attempt == 0 {
			s.log.Warn("join link collided, reissuing", zap.Stringer("event_id", e.ID))
			continue
		}
		if err != nil {
			return false, fmt.Errorf("s.repo.Activate -> %w", err)
		}

		return ok, nil
	}
}

func (s *LifecycleScheduler) issueChannel(e domain.Event) (token, linkToken string, err error) {
	if e.HasProof() {
		return "", "", nil
	}

	if e.Channel == domain.ChannelJoinLink {
		if linkToken, err = s.issuer.NewLinkToken(); err != nil {
			return "", "", fmt.Errorf("s.issuer.NewLinkToken -> %w", err)
		}
		return "", linkToken, nil
	}

	if token, err = s.issuer.NewToken(); err != nil {
		return "", "", fmt.Errorf("s.issuer.NewToken -> %w", err)
	}
	return token, "", nil
}

func (s *LifecycleScheduler) fail(err error, fields ...zap.Field) {
	s.metrics.WorkerFailures.WithLabelValues("lifecycle").Inc()
	s.log.Error("lifecycle transition failed", append(fields, zap.Error(err))...)
}
