package domain

import (
	"time"

	"github.com/google/uuid"
)

// Proof is either a TokenProof or a LinkProof.
type Proof interface {
	Channel() Channel
	isProof()
}

type TokenProof struct {
	EventID  uuid.UUID
	Token    string
	IssuedAt time.Time
}

func (TokenProof) Channel() Channel { return ChannelPresenceToken }
func (TokenProof) isProof()         {}

type LinkProof struct {
	LinkToken string
}

func (LinkProof) Channel() Channel { return ChannelJoinLink }
func (LinkProof) isProof()         {}

// Submission is an attendance claim from an authenticated subject. Exactly
// one of RawProof and LinkToken is expected to be set.
type Submission struct {
	SubjectID string
	RawProof  string
	LinkToken string
	Location  *Location
}

type ProofStatus struct {
	EventID                  uuid.UUID
	CurrentProof             string
	Paused                   bool
	SecondsUntilNextRotation int
}
