package proof

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomIssuer_Tokens(t *testing.T) {
	issuer := NewRandomIssuer()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok, err := issuer.NewToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, tokenBytes)

		_, dup := seen[tok]
		require.False(t, dup, "token collision")
		seen[tok] = struct{}{}
	}

	link, err := issuer.NewLinkToken()
	require.NoError(t, err)
	assert.NotEmpty(t, link)
}

func TestEncodeDecode(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 123_000_000, time.UTC)
	p := Payload{EventID: uuid.New(), Token: "abc", IssuedAt: issuedAt}

	raw, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p.EventID, got.EventID)
	assert.Equal(t, "abc", got.Token)
	assert.True(t, issuedAt.Equal(got.IssuedAt))
}

func TestDecode_Rejects(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `hello`},
		{"array", `[1,2]`},
		{"missing token", `{"eventId":"` + id + `","issuedAt":1}`},
		{"missing event", `{"token":"t","issuedAt":1}`},
		{"missing issuedAt", `{"eventId":"` + id + `","token":"t"}`},
		{"empty token", `{"eventId":"` + id + `","token":"","issuedAt":1}`},
		{"bad uuid", `{"eventId":"42","token":"t","issuedAt":1}`},
		{"negative issuedAt", `{"eventId":"` + id + `","token":"t","issuedAt":-5}`},
		{"wrong type", `{"eventId":"` + id + `","token":7,"issuedAt":1}`},
		{"unknown field", `{"eventId":"` + id + `","token":"t","issuedAt":1,"admin":true}`},
		{"trailing data", `{"eventId":"` + id + `","token":"t","issuedAt":1}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
