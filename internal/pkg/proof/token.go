// Package proof issues proof-of-presence tokens and encodes the payload
// that display screens embed in their scannable codes.
package proof

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// tokenBytes gives 256 bits of entropy per rotating token.
	tokenBytes = 32
	// linkTokenBytes is used for long-lived join links.
	linkTokenBytes = 24
)

// Issuer generates unguessable tokens.
type Issuer interface {
	NewToken() (string, error)
	NewLinkToken() (string, error)
}

type RandomIssuer struct{}

func NewRandomIssuer() RandomIssuer {
	return RandomIssuer{}
}

func (RandomIssuer) NewToken() (string, error) {
	return randomString(tokenBytes)
}

func (RandomIssuer) NewLinkToken() (string, error) {
	return randomString(linkTokenBytes)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read -> %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
