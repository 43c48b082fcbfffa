package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagereach/console/internal/config"
)

// fakeCreds is an in-memory CredentialSource for tests.
type fakeCreds struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared = true
	return nil
}

func (f *fakeCreds) wasCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

// newTestClient spins up a mock backend and a client pointed at it.
func newTestClient(t *testing.T, token string, handler http.HandlerFunc) (*Client, *fakeCreds) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := &fakeCreds{token: token}
	client := NewClient(config.APIConfig{BaseURL: server.URL, TimeoutSeconds: 5}, creds, nil)
	return client, creds
}

func TestSendAttachesHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotAccept string
	client, _ := newTestClient(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	})

	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "application/json", gotAccept)
}

func TestSendOmitsAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestUnauthorizedWithTokenInvalidatesSession(t *testing.T) {
	invalidated := false
	client, creds := newTestClient(t, "stale-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	})
	client.OnSessionInvalidated(func() { invalidated = true })

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.True(t, creds.wasCleared())
	assert.True(t, invalidated)
	assert.Empty(t, creds.Token())
}

func TestUnauthorizedWithoutTokenIsPlainError(t *testing.T) {
	invalidated := false
	client, creds := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid email or password"})
	})
	client.OnSessionInvalidated(func() { invalidated = true })

	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	// A failed login is not a session invalidation: nothing was stored.
	assert.False(t, creds.wasCleared())
	assert.False(t, invalidated)
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.APIConfig{BaseURL: url, TimeoutSeconds: 1}, &fakeCreds{}, nil)
	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestContextCancellationPassesThrough(t *testing.T) {
	client, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CurrentUser(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsNetwork(err))
}

func TestValidationErrorParsing(t *testing.T) {
	client, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"Invalid email format","type":"value_error"}]}`))
	})

	_, err := client.Login(context.Background(), "bad", "pw")
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "email", ve.Fields[0].Field)
	assert.Equal(t, "Invalid email format", ve.Fields[0].Message)
}

func TestErrorBodyWithStringDetail(t *testing.T) {
	client, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	})

	_, err := client.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "longenough"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Email already registered", he.Detail)
}

func TestErrorBodyUnparseable(t *testing.T) {
	client, _ := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}
