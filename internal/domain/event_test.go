package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveState_Window(t *testing.T) {
	t0 := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s := Schedule{StartsAt: t0, DurationMinutes: 60}
	d := 60 * time.Minute

	assert.Equal(t, StateDormant, DeriveState(t0.Add(-time.Second), s))
	assert.Equal(t, StateActive, DeriveState(t0, s))
	assert.Equal(t, StateActive, DeriveState(t0.Add(d-time.Second), s))
	assert.Equal(t, StateEnded, DeriveState(t0.Add(d), s))
	assert.Equal(t, StateEnded, DeriveState(t0.Add(48*time.Hour), s))
}

func TestEvent_Allows(t *testing.T) {
	open := Event{Eligibility: EligibilityOpen}
	assert.True(t, open.Allows("anyone"))

	restricted := Event{Eligibility: EligibilityRestricted, AllowedSubjects: []string{"s1"}}
	assert.True(t, restricted.Allows("s1"))
	assert.False(t, restricted.Allows("s2"))
}

func TestEvent_HasProof(t *testing.T) {
	assert.False(t, Event{Channel: ChannelPresenceToken}.HasProof())
	assert.True(t, Event{Channel: ChannelPresenceToken, ProofToken: "x"}.HasProof())
	assert.False(t, Event{Channel: ChannelJoinLink, ProofToken: "x"}.HasProof())
	assert.True(t, Event{Channel: ChannelJoinLink, LinkToken: "l"}.HasProof())
}
