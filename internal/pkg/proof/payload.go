package proof

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrMalformedPayload = errors.New("malformed proof payload")

// Payload is what a token-channel display encodes. Clients treat the
// encoded form as opaque and hand it back unchanged.
type Payload struct {
	EventID  uuid.UUID
	Token    string
	IssuedAt time.Time
}

type wirePayload struct {
	EventID  *string `json:"eventId"`
	Token    *string `json:"token"`
	IssuedAt *int64  `json:"issuedAt"`
}

// Encode serializes p. IssuedAt is carried as unix milliseconds.
func Encode(p Payload) (string, error) {
	eventID := p.EventID.String()
	issuedAt := p.IssuedAt.UnixMilli()
	w := wirePayload{
		EventID:  &eventID,
		Token:    &p.Token,
		IssuedAt: &issuedAt,
	}

	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("json.Marshal -> %w", err)
	}

	return string(b), nil
}

// Decode parses raw strictly: exactly one JSON object with the three known
// fields, no unknown fields, no trailing data.
func Decode(raw string) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var w wirePayload
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}

	if w.EventID == nil || w.Token == nil || w.IssuedAt == nil {
		return Payload{}, fmt.Errorf("%w: eventId, token and issuedAt are required", ErrMalformedPayload)
	}
	if *w.Token == "" {
		return Payload{}, fmt.Errorf("%w: empty token", ErrMalformedPayload)
	}
	if *w.IssuedAt <= 0 {
		return Payload{}, fmt.Errorf("%w: invalid issuedAt", ErrMalformedPayload)
	}

	eventID, err := uuid.Parse(*w.EventID)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: invalid eventId", ErrMalformedPayload)
	}

	return Payload{
		EventID:  eventID,
		Token:    *w.Token,
		IssuedAt: time.UnixMilli(*w.IssuedAt).UTC(),
	}, nil
}
