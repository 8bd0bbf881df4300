package ytdigest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"yt-digest/shared/config"
)

func TestRecipientResolver(t *testing.T) {
	r := NewRecipientResolver(config.RecipientsConfig{
		Default: []string{"team@example.com", "Team@Example.com", "ops@example.com"},
		PerChannel: map[string][]string{
			chanA: {"a@example.com"},
			chanB: {" ", ""},
		},
	})

	tests := []struct {
		name      string
		channelID string
		expected  []string
	}{
		{"channel list wins", chanA, []string{"a@example.com"}},
		{"blank channel list falls back", chanB, []string{"team@example.com", "ops@example.com"}},
		{"unknown channel gets default", "UCzzzzzzzzzzzzzzzzzzzzzz", []string{"team@example.com", "ops@example.com"}},
		{"ids are case-sensitive", "uc_x5xg1ov2p6uzz5fsm9ttw", []string{"team@example.com", "ops@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve(tt.channelID))
		})
	}
}

func TestRecipientResolverEmpty(t *testing.T) {
	r := NewRecipientResolver(config.RecipientsConfig{})
	assert.Empty(t, r.Resolve(chanA))
}
