package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type pair struct {
	eventID   uuid.UUID
	subjectID string
}

// memStore mimics the storage layer, including the unique constraint on
// (event, subject) attendance pairs.
type memStore struct {
	mu          sync.Mutex
	events      map[uuid.UUID]domain.Event
	attendances map[pair]domain.Attendance

	getErr       error
	listErr      error
	activateErrs map[uuid.UUID]error
	// linkConflicts makes that many activations carrying a join link fail
	// as if the link were taken.
	linkConflicts int
	rotateErrs   map[uuid.UUID]error
	insertErr    error
	// hideOnce makes the next lookup for a pair miss, as if a concurrent
	// insert landed right after it.
	hideOnce map[pair]bool
	inserts  int
}

func newMemStore() *memStore {
	return &memStore{
		events:       make(map[uuid.UUID]domain.Event),
		attendances:  make(map[pair]domain.Attendance),
		activateErrs: make(map[uuid.UUID]error),
		rotateErrs:   make(map[uuid.UUID]error),
		hideOnce:     make(map[pair]bool),
	}
}

func (m *memStore) put(e domain.Event) domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.events[e.ID] = e
	return e
}

func (m *memStore) event(id uuid.UUID) domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attendances)
}

func (m *memStore) Create(_ context.Context, e domain.Event) (domain.Event, error) {
	return m.put(e), nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Event{}, m.getErr
	}
	e, ok := m.events[id]
	if !ok {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", repository.ErrEventNotFound)
	}
	return e, nil
}

func (m *memStore) GetByLinkToken(_ context.Context, linkToken string) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.LinkToken != "" && e.LinkToken == linkToken {
			return e, nil
		}
	}
	return domain.Event{}, fmt.Errorf("r.dao.FindByLinkToken -> %w", repository.ErrEventNotFound)
}

// FindDormantDue deliberately ignores the end of the window so the
// scheduler's own state derivation is exercised.
func (m *memStore) FindDormantDue(_ context.Context, now time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Event
	for _, e := range m.events {
		if !e.IsActive && !e.Schedule.StartsAt.After(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) FindActive(_ context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Event
	for _, e := range m.events {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Activate(_ context.Context, id uuid.UUID, token, linkToken string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.activateErrs[id]; err != nil {
		return false, err
	}
	if linkToken != "" && m.linkConflicts > 0 {
		m.linkConflicts--
		return false, fmt.Errorf("r.dao.Activate -> %w", repository.ErrLinkTokenConflict)
	}
	e, ok := m.events[id]
	if !ok || e.IsActive {
		return false, nil
	}
	e.IsActive = true
	if e.ProofToken == "" && token != "" {
		e.ProofToken = token
		at := issuedAt
		e.ProofIssuedAt = &at
	}
	if e.LinkToken == "" {
		e.LinkToken = linkToken
	}
	m.events[id] = e
	return true, nil
}

func (m *memStore) End(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || !e.IsActive {
		return false, nil
	}
	e.IsActive = false
	e.ProofToken = ""
	e.ProofIssuedAt = nil
	e.LinkToken = ""
	e.Paused = false
	m.events[id] = e
	return true, nil
}

func (m *memStore) FindRotatable(_ context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Event
	for _, e := range m.events {
		if e.Channel == domain.ChannelPresenceToken && !e.Paused && e.ProofToken != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) RotateToken(_ context.Context, id uuid.UUID, token string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.rotateErrs[id]; err != nil {
		return false, err
	}
	e, ok := m.events[id]
	if !ok || e.Channel != domain.ChannelPresenceToken || e.Paused || e.ProofToken == "" {
		return false, nil
	}
	e.ProofToken = token
	at := issuedAt
	e.ProofIssuedAt = &at
	m.events[id] = e
	return true, nil
}

func (m *memStore) SetPaused(_ context.Context, id uuid.UUID, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return fmt.Errorf("r.dao.SetPaused -> %w", repository.ErrEventNotFound)
	}
	e.Paused = paused
	m.events[id] = e
	return nil
}

func (m *memStore) Insert(_ context.Context, a domain.Attendance) (domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return domain.Attendance{}, m.insertErr
	}
	key := pair{a.EventID, a.SubjectID}
	if _, ok := m.attendances[key]; ok {
		return domain.Attendance{}, fmt.Errorf("r.dao.Insert -> %w", repository.ErrAttendanceExists)
	}
	a.ID = uuid.New()
	m.attendances[key] = a
	m.inserts++
	return a, nil
}

func (m *memStore) FindByEventAndSubject(_ context.Context, eventID uuid.UUID, subjectID string) (domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pair{eventID, subjectID}
	if m.hideOnce[key] {
		delete(m.hideOnce, key)
		return domain.Attendance{}, fmt.Errorf("r.dao.FindByEventAndSubject -> %w", repository.ErrAttendanceNotFound)
	}
	a, ok := m.attendances[key]
	if !ok {
		return domain.Attendance{}, fmt.Errorf("r.dao.FindByEventAndSubject -> %w", repository.ErrAttendanceNotFound)
	}
	return a, nil
}

func (m *memStore) ListByEvent(_ context.Context, eventID uuid.UUID) ([]domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Attendance
	for k, a := range m.attendances {
		if k.eventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

// seqIssuer returns predictable tokens.
type seqIssuer struct {
	mu  sync.Mutex
	n   int
	err error
}

func (i *seqIssuer) NewToken() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return "", i.err
	}
	i.n++
	return fmt.Sprintf("tok-%d", i.n), nil
}

func (i *seqIssuer) NewLinkToken() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return "", i.err
	}
	i.n++
	return fmt.Sprintf("link-%d", i.n), nil
}

var _ proof.Issuer = (*seqIssuer)(nil)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func tokenEvent(start time.Time, minutes int) domain.Event {
	return domain.Event{
		Title:       "Standup",
		OwnerID:     "owner-1",
		Schedule:    domain.Schedule{StartsAt: start, DurationMinutes: minutes},
		Channel:     domain.ChannelPresenceToken,
		Eligibility: domain.EligibilityOpen,
	}
}

func linkEvent(start time.Time, minutes int) domain.Event {
	e := tokenEvent(start, minutes)
	e.Title = "Remote sync"
	e.Channel = domain.ChannelJoinLink
	return e
}

func encodeProof(t *testing.T, e domain.Event) string {
	t.Helper()
	require.NotEmpty(t, e.ProofToken)

	issuedAt := t0
	if e.ProofIssuedAt != nil {
		issuedAt = *e.ProofIssuedAt
	}
	raw, err := proof.Encode(proof.Payload{EventID: e.ID, Token: e.ProofToken, IssuedAt: issuedAt})
	require.NoError(t, err)
	return raw
}

type observedLogs struct {
	logs *observer.ObservedLogs
}

func (o *observedLogs) filter(msg string) []observer.LoggedEntry {
	return o.logs.FilterMessage(msg).All()
}

func (o *observedLogs) count(msg string) int {
	return o.logs.FilterMessage(msg).Len()
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
