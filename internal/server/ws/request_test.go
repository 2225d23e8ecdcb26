package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powplant/internal/domain"
)

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(`{"event":{"created_at":7,"kind":1,"tags":[["e","x"],[]],"content":"","pubkey":"abc","sig":"ignored"},"target_pow":0,"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, domain.PowRequest{
		Event: domain.Event{
			CreatedAt: 7,
			Kind:      1,
			Tags:      [][]string{{"e", "x"}, {}},
			Content:   "",
			PubKey:    "abc",
		},
		TargetPow: 0,
	}, req)
}

func TestDecodeRequestIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `nope`},
		{"empty object", `{}`},
		{"no event", `{"target_pow":0}`},
		{"null event", `{"event":null,"target_pow":0}`},
		{"no target", `{"event":{"created_at":1,"kind":1,"tags":[],"content":"hi","pubkey":"abc"}}`},
		{"null target", `{"event":{"created_at":1,"kind":1,"tags":[],"content":"hi","pubkey":"abc"},"target_pow":null}`},
		{"no created_at", `{"event":{"kind":1,"tags":[],"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"no kind", `{"event":{"created_at":1,"tags":[],"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"no tags", `{"event":{"created_at":1,"kind":1,"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"null tags", `{"event":{"created_at":1,"kind":1,"tags":null,"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"null tag", `{"event":{"created_at":1,"kind":1,"tags":[null],"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"null tag value", `{"event":{"created_at":1,"kind":1,"tags":[["e",null]],"content":"hi","pubkey":"abc"},"target_pow":0}`},
		{"no content", `{"event":{"created_at":1,"kind":1,"tags":[],"pubkey":"abc"},"target_pow":0}`},
		{"no pubkey", `{"event":{"created_at":1,"kind":1,"tags":[],"content":"hi"},"target_pow":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRequest([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrMalformedRequest)
			assert.Equal(t, "malformed", requestOutcome(err))
		})
	}
}
