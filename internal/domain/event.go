package domain

import (
	"time"

	"github.com/google/uuid"
)

type LifecycleState string

const (
	StateDormant LifecycleState = "dormant"
	StateActive  LifecycleState = "active"
	StateEnded   LifecycleState = "ended"
)

type Channel string

const (
	ChannelPresenceToken Channel = "presence-token"
	ChannelJoinLink      Channel = "join-link"
)

type Eligibility string

const (
	EligibilityOpen       Eligibility = "open"
	EligibilityRestricted Eligibility = "restricted"
)

type Schedule struct {
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (s Schedule) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// DeriveState is the only authority on an event's lifecycle. The start is
// inclusive and the end exclusive.
func DeriveState(now time.Time, s Schedule) LifecycleState {
	switch {
	case now.Before(s.StartsAt):
		return StateDormant
	case now.Before(s.EndsAt()):
		return StateActive
	default:
		return StateEnded
	}
}

type Geofence struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

type Event struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	OwnerID  string    `json:"owner_id"`
	Schedule Schedule  `json:"schedule"`
	Channel  Channel   `json:"channel"`

	// IsActive is a projection written by the lifecycle scheduler. Use
	// DeriveState for any decision.
	IsActive bool `json:"is_active"`

	ProofToken    string     `json:"-"`
	ProofIssuedAt *time.Time `json:"-"`
	Paused        bool       `json:"paused"`
	LinkToken     string     `json:"link_token,omitempty"`

	Geofence        *Geofence   `json:"geofence,omitempty"`
	Eligibility     Eligibility `json:"eligibility"`
	AllowedSubjects []string    `json:"allowed_subjects,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Event) StateAt(now time.Time) LifecycleState {
	return DeriveState(now, e.Schedule)
}

// HasProof reports whether a proof channel has been issued for the event.
func (e Event) HasProof() bool {
	if e.Channel == ChannelJoinLink {
		return e.LinkToken != ""
	}
	return e.ProofToken != ""
}

func (e Event) Allows(subjectID string) bool {
	if e.Eligibility != EligibilityRestricted {
		return true
	}
	for _, s := range e.AllowedSubjects {
		if s == subjectID {
			return true
		}
	}
	return false
}
