package livestatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func TestWSURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "http becomes ws",
			baseURL: "http://localhost:8000",
			want:    "ws://localhost:8000/api/ws/campaign/c-42?token=secret",
		},
		{
			name:    "https becomes wss",
			baseURL: "https://api.pagereach.io",
			want:    "wss://api.pagereach.io/api/ws/campaign/c-42?token=secret",
		},
		{
			name:    "trailing slash on base path",
			baseURL: "https://api.pagereach.io/",
			want:    "wss://api.pagereach.io/api/ws/campaign/c-42?token=secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wsURL(tt.baseURL, "c-42", "secret")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWSURLEncodesToken(t *testing.T) {
	got, err := wsURL("http://localhost:8000", "c-42", "a+b/c=")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/api/ws/campaign/c-42?token=a%2Bb%2Fc%3D", got)
}

func TestWSURLWithoutToken(t *testing.T) {
	_, err := wsURL("http://localhost:8000", "c-42", "")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = wsURL("http://localhost:8000", "c-42", "   ")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestWSDialerReady(t *testing.T) {
	assert.ErrorIs(t, NewWSDialer("http://localhost:8000", staticTokens("")).Ready(), ErrNoToken)
	assert.NoError(t, NewWSDialer("http://localhost:8000", staticTokens("secret")).Ready())
}
