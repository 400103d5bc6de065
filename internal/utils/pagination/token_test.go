package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisys/ledgercore/internal/utils/pagination"
)

func TestKeyToken_RoundTrip(t *testing.T) {
	token := pagination.EncodeKeyToken("1000-CASH")

	key, err := pagination.DecodeKeyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "1000-CASH", key)
}

func TestDecodeKeyToken_InvalidBase64(t *testing.T) {
	_, err := pagination.DecodeKeyToken("not-base64!!!")
	assert.Error(t, err)
}

func TestTimeToken_RoundTrip(t *testing.T) {
	recordedAt := time.Date(2024, 6, 1, 12, 30, 45, 123456789, time.UTC)
	token := pagination.EncodeTimeToken(recordedAt, "VER-abc")

	gotTime, gotID, err := pagination.DecodeTimeToken(token)
	require.NoError(t, err)
	assert.True(t, recordedAt.Equal(gotTime), "nanosecond precision survives the round trip")
	assert.Equal(t, "VER-abc", gotID)
}

func TestTimeToken_IDMayContainSeparator(t *testing.T) {
	recordedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	token := pagination.EncodeTimeToken(recordedAt, "left|right")

	_, gotID, err := pagination.DecodeTimeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "left|right", gotID)
}

func TestDecodeTimeToken_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"missing separator", pagination.EncodeKeyToken("2024-06-01T00:00:00Z")},
		{"bad timestamp", pagination.EncodeKeyToken("yesterday|VER-abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := pagination.DecodeTimeToken(tt.token)
			assert.Error(t, err)
		})
	}
}
