package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/clock"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
)

const rotationInterval = 20 * time.Second

type rotationFixture struct {
	store   *memStore
	clock   *clock.Fake
	state   *RotationState
	service *RotationService
	logs    *observedLogs
}

func newRotationFixture(now time.Time) *rotationFixture {
	store := newMemStore()
	clk := clock.NewFake(now)
	state := NewRotationState(rotationInterval, now)
	log, logs := newObservedLogger()

	return &rotationFixture{
		store:   store,
		clock:   clk,
		state:   state,
		service: NewRotationService(store, &seqIssuer{}, state, clk, log, newMetrics()),
		logs:    &observedLogs{logs},
	}
}

func withToken(e domain.Event, token string) domain.Event {
	e.ProofToken = token
	at := t0
	e.ProofIssuedAt = &at
	return e
}

func TestRotationState_SecondsUntilNext(t *testing.T) {
	s := NewRotationState(rotationInterval, t0)

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 20},
		{500 * time.Millisecond, 20},
		{time.Second, 19},
		{5 * time.Second, 15},
		{19*time.Second + 999*time.Millisecond, 1},
		{20 * time.Second, 0},
		{45 * time.Second, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.SecondsUntilNext(t0.Add(tt.elapsed)), "elapsed %s", tt.elapsed)
	}

	s.MarkRotated(t0.Add(45 * time.Second))
	assert.Equal(t, 20, s.SecondsUntilNext(t0.Add(45*time.Second)))
}

func TestRotationState_CountdownDecreasesBetweenTicks(t *testing.T) {
	s := NewRotationState(rotationInterval, t0)

	prev := s.SecondsUntilNext(t0)
	for i := 1; i < 20; i++ {
		cur := s.SecondsUntilNext(t0.Add(time.Duration(i) * time.Second))
		assert.Less(t, cur, prev)
		prev = cur
	}
}

func TestRotationService_TickRotatesInLockstep(t *testing.T) {
	f := newRotationFixture(t0)
	a := f.store.put(withToken(tokenEvent(t0, 60), "a0"))
	b := f.store.put(withToken(tokenEvent(t0, 60), "b0"))
	paused := withToken(tokenEvent(t0, 60), "p0")
	paused.Paused = true
	paused = f.store.put(paused)
	link := linkEvent(t0, 60)
	link.LinkToken = "join"
	link = f.store.put(link)
	empty := f.store.put(tokenEvent(t0, 60))

	f.clock.Advance(rotationInterval)
	report := f.service.Tick(context.Background())
	assert.Equal(t, 2, report.Rotated)
	assert.Zero(t, report.Failed)

	gotA, gotB := f.store.event(a.ID), f.store.event(b.ID)
	assert.NotEqual(t, "a0", gotA.ProofToken)
	assert.NotEqual(t, "b0", gotB.ProofToken)
	assert.NotEqual(t, gotA.ProofToken, gotB.ProofToken)
	require.NotNil(t, gotA.ProofIssuedAt)
	require.NotNil(t, gotB.ProofIssuedAt)
	assert.True(t, gotA.ProofIssuedAt.Equal(*gotB.ProofIssuedAt))
	assert.True(t, gotA.ProofIssuedAt.Equal(report.At))

	assert.Equal(t, "p0", f.store.event(paused.ID).ProofToken)
	assert.Equal(t, "join", f.store.event(link.ID).LinkToken)
	assert.Empty(t, f.store.event(link.ID).ProofToken)
	assert.Empty(t, f.store.event(empty.ID).ProofToken)

	assert.True(t, f.state.LastRotatedAt().Equal(f.clock.Now()))
	assert.Equal(t, 20, f.state.SecondsUntilNext(f.clock.Now()))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.service.metrics.TokensRotated))
	assert.Equal(t, float64(f.clock.Now().Unix()), testutil.ToFloat64(f.service.metrics.LastRotation))
}

func TestRotationService_TickMarksInstantWithoutEvents(t *testing.T) {
	f := newRotationFixture(t0)

	f.clock.Advance(rotationInterval + 3*time.Second)
	report := f.service.Tick(context.Background())
	assert.Zero(t, report.Rotated)
	assert.True(t, f.state.LastRotatedAt().Equal(f.clock.Now()))
}

func TestRotationService_TickIsolatesFailures(t *testing.T) {
	f := newRotationFixture(t0)
	bad := f.store.put(withToken(tokenEvent(t0, 60), "bad"))
	good := f.store.put(withToken(tokenEvent(t0, 60), "good"))
	f.store.rotateErrs[bad.ID] = errors.New("deadlock detected")

	report := f.service.Tick(context.Background())
	assert.Equal(t, 1, report.Rotated)
	assert.Equal(t, 1, report.Failed)
	assert.NotEqual(t, "good", f.store.event(good.ID).ProofToken)
	assert.Equal(t, "bad", f.store.event(bad.ID).ProofToken)
	assert.Equal(t, 1, f.logs.count("token rotation failed"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.service.metrics.WorkerFailures.WithLabelValues("rotation")))
}

func TestRotationService_StatusNeverRotates(t *testing.T) {
	f := newRotationFixture(t0)
	e := f.store.put(withToken(tokenEvent(t0, 60), "current"))

	f.clock.Advance(7 * time.Second)
	for i := 0; i < 3; i++ {
		status, err := f.service.Status(context.Background(), e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, status.EventID)
		assert.False(t, status.Paused)
		assert.Equal(t, 13, status.SecondsUntilNextRotation)

		payload, err := proof.Decode(status.CurrentProof)
		require.NoError(t, err)
		assert.Equal(t, e.ID, payload.EventID)
		assert.Equal(t, "current", payload.Token)
		assert.True(t, payload.IssuedAt.Equal(t0))
	}

	assert.Equal(t, "current", f.store.event(e.ID).ProofToken)
	assert.True(t, f.state.LastRotatedAt().Equal(t0))
}

func TestRotationService_StatusErrors(t *testing.T) {
	f := newRotationFixture(t0)
	link := f.store.put(linkEvent(t0, 60))

	_, err := f.service.Status(context.Background(), link.ID)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.service.Status(context.Background(), domain.Event{}.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	f.store.getErr = errors.New("timeout")
	_, err = f.service.Status(context.Background(), link.ID)
	require.Error(t, err)
	assert.Equal(t, "internal_error", Outcome(err))
}

func TestRotationService_StatusWithoutToken(t *testing.T) {
	f := newRotationFixture(t0)
	e := f.store.put(tokenEvent(t0.Add(time.Hour), 60))

	status, err := f.service.Status(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, status.CurrentProof)
}

func TestRotationService_PauseAndResume(t *testing.T) {
	f := newRotationFixture(t0)
	e := f.store.put(withToken(tokenEvent(t0, 60), "frozen"))

	require.NoError(t, f.service.Pause(context.Background(), e.ID))

	for i := 0; i < 3; i++ {
		f.clock.Advance(rotationInterval)
		f.service.Tick(context.Background())
	}
	assert.Equal(t, "frozen", f.store.event(e.ID).ProofToken)

	status, err := f.service.Status(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, status.Paused)
	assert.Zero(t, status.SecondsUntilNextRotation)

	f.clock.Advance(9 * time.Second)
	require.NoError(t, f.service.Resume(context.Background(), e.ID))
	assert.True(t, f.state.LastRotatedAt().Equal(f.clock.Now()))

	select {
	case <-f.service.reset:
	default:
		t.Fatal("resume did not reset the rotation ticker")
	}

	status, err = f.service.Status(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, status.Paused)
	assert.Equal(t, 20, status.SecondsUntilNextRotation)

	f.clock.Advance(rotationInterval)
	f.service.Tick(context.Background())
	assert.NotEqual(t, "frozen", f.store.event(e.ID).ProofToken)
}

func TestRotationService_PauseRejectsLinkEvents(t *testing.T) {
	f := newRotationFixture(t0)
	link := f.store.put(linkEvent(t0, 60))

	assert.ErrorIs(t, f.service.Pause(context.Background(), link.ID), ErrBadRequest)
	assert.ErrorIs(t, f.service.Resume(context.Background(), link.ID), ErrBadRequest)
	assert.ErrorIs(t, f.service.Pause(context.Background(), domain.Event{}.ID), ErrNotFound)
}

func TestRotationService_NotifiesListeners(t *testing.T) {
	f := newRotationFixture(t0)

	var (
		mu   sync.Mutex
		seen []time.Time
	)
	f.service.OnRotated(func(at time.Time) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, at)
	})

	f.clock.Advance(rotationInterval)
	f.service.Tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Equal(f.clock.Now()))
}

type memMirror struct {
	mu  sync.Mutex
	at  time.Time
	err error
}

func (m *memMirror) SaveLastRotatedAt(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.at = at
	return nil
}

func (m *memMirror) LoadLastRotatedAt(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return time.Time{}, m.err
	}
	return m.at, nil
}

func TestRotationService_Mirror(t *testing.T) {
	f := newRotationFixture(t0)
	mirror := &memMirror{}
	f.service.WithMirror(mirror)
	e := f.store.put(withToken(tokenEvent(t0, 60), "x"))

	f.clock.Advance(rotationInterval)
	f.service.Tick(context.Background())
	assert.True(t, mirror.at.Equal(f.clock.Now()))

	// A replica that does not run the worker reads the mirrored instant.
	replica := newRotationFixture(t0)
	replica.store = f.store
	replica.service = NewRotationService(f.store, &seqIssuer{}, replica.state, f.clock, zapNop(), newMetrics()).WithMirror(mirror)

	f.clock.Advance(5 * time.Second)
	status, err := replica.service.Status(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, status.SecondsUntilNextRotation)

	// Without the mirror the replica falls back to its own state.
	mirror.err = errors.New("redis: connection refused")
	status, err = replica.service.Status(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.SecondsUntilNextRotation)
}

func TestRotationService_WorkerAdoptsResumeFromReplica(t *testing.T) {
	ctx := context.Background()
	worker := newRotationFixture(t0)
	mirror := &memMirror{}
	worker.service.WithMirror(mirror)
	e := worker.store.put(withToken(tokenEvent(t0, 60), "x"))

	worker.clock.Advance(rotationInterval)
	worker.service.Tick(ctx)
	token := worker.store.event(e.ID).ProofToken
	assert.Zero(t, worker.service.syncFromMirror(ctx), "own instant is not newer")

	// An API-only replica sharing the store and mirror handles the resume.
	apiState := NewRotationState(rotationInterval, t0)
	api := NewRotationService(worker.store, &seqIssuer{}, apiState, worker.clock, zapNop(), newMetrics()).WithMirror(mirror)

	worker.clock.Advance(10 * time.Second)
	resumedAt := worker.clock.Now()
	require.NoError(t, api.Resume(ctx, e.ID))

	status, err := worker.service.Status(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, status.SecondsUntilNextRotation)

	// When the worker's old schedule fires it waits out the new countdown
	// instead of rotating.
	worker.clock.Advance(10 * time.Second)
	assert.Equal(t, 10*time.Second, worker.service.syncFromMirror(ctx))
	assert.True(t, worker.state.LastRotatedAt().Equal(resumedAt))
	assert.Equal(t, token, worker.store.event(e.ID).ProofToken)

	worker.clock.Advance(10 * time.Second)
	assert.Zero(t, worker.service.syncFromMirror(ctx))
}

func TestRotationService_SyncFromMirrorUnavailable(t *testing.T) {
	f := newRotationFixture(t0)
	assert.Zero(t, f.service.syncFromMirror(context.Background()))

	f.service.WithMirror(&memMirror{err: errors.New("redis: connection refused")})
	assert.Zero(t, f.service.syncFromMirror(context.Background()))
}

func TestRotationService_RunStopsOnCancel(t *testing.T) {
	f := newRotationFixture(t0)
	state := NewRotationState(10*time.Millisecond, t0)
	f.service = NewRotationService(f.store, &seqIssuer{}, state, f.clock, zapNop(), newMetrics())
	e := f.store.put(withToken(tokenEvent(t0, 60), "start"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.service.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.store.event(e.ID).ProofToken != "start"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rotation did not stop")
	}
}
