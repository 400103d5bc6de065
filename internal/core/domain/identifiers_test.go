package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisys/ledgercore/internal/core/domain"
)

func TestAccountID_RoundTrip(t *testing.T) {
	id := domain.NewAccountID()
	assert.True(t, strings.HasPrefix(id.String(), "ACC-"))

	parsed, err := domain.ParseAccountID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseAccountID_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong prefix", "TXN-" + domain.NewTransactionID().String()[4:]},
		{"no uuid", "ACC-not-a-uuid"},
		{"bare uuid", "1f0e9cb2-52f5-4b43-bd05-b212f0e4e3cc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseAccountID(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestIdentifierPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(domain.NewTransactionID().String(), "TXN-"))
	assert.True(t, strings.HasPrefix(domain.NewPostingID().String(), "PST-"))
	assert.True(t, strings.HasPrefix(domain.NewVersionID().String(), "VER-"))
	assert.True(t, strings.HasPrefix(domain.NewPolicyID().String(), "POL-"))
	assert.True(t, strings.HasPrefix(domain.NewClaimID().String(), "CLM-"))
	assert.True(t, strings.HasPrefix(domain.NewPartyID().String(), "PTY-"))
	assert.True(t, strings.HasPrefix(domain.NewFundID().String(), "FND-"))
}
