package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
	"github.com/pagereach/console/internal/config"
	"github.com/pagereach/console/internal/credentials"
)

const testUserJSON = `{
	"id": "7",
	"email": "ada@pagereach.io",
	"first_name": "Ada",
	"last_name": "Ops",
	"role": "user",
	"is_active": true,
	"is_verified": true
}`

func tokenResponseJSON(token string) string {
	return `{"access_token":"` + token + `","token_type":"bearer","expires_in":1800,"user":` + testUserJSON + `}`
}

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *credentials.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credentials.NewStore(filepath.Join(t.TempDir(), "credentials.json"), zap.NewNop())
	api := backend.NewClient(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, store, zap.NewNop())
	mgr := NewManager(api, store, zap.NewNop())
	api.OnSessionInvalidated(mgr.Invalidate)
	return mgr, store
}

func seedCredential(t *testing.T, store *credentials.Store, token string) {
	t.Helper()
	require.NoError(t, store.Save(credentials.Credential{
		AccessToken: token,
		UserID:      "7",
		User:        &backend.User{ID: "7", Email: "ada@pagereach.io"},
	}))
}

func TestBootstrapWithoutCredentialStaysOffline(t *testing.T) {
	var hits int32
	mgr, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	state, err := mgr.Bootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)
	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Nil(t, mgr.User())
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits), "no credential should mean no request")
}

func TestBootstrapRestoresStoredSession(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/me", r.URL.Path)
		require.Equal(t, "Bearer stored-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testUserJSON))
	}))
	seedCredential(t, store, "stored-token")

	state, err := mgr.Bootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
	require.NotNil(t, mgr.User())
	assert.Equal(t, "ada@pagereach.io", mgr.User().Email)
	assert.Equal(t, "stored-token", store.Token())
}

func TestBootstrapRejectedTokenEndsAnonymous(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	seedCredential(t, store, "expired-token")

	state, err := mgr.Bootstrap(context.Background())

	require.NoError(t, err, "a stale token at startup is not an error")
	assert.Equal(t, StateAnonymous, state)
	assert.Nil(t, mgr.User())
	assert.Empty(t, store.Token(), "rejected token must be cleared")
}

func TestBootstrapServerDownEndsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	store := credentials.NewStore(filepath.Join(t.TempDir(), "credentials.json"), zap.NewNop())
	api := backend.NewClient(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 1}, store, zap.NewNop())
	mgr := NewManager(api, store, zap.NewNop())
	seedCredential(t, store, "stored-token")

	state, err := mgr.Bootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, state)
}

func TestBootstrapCancelledLeavesStateUnknown(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testUserJSON))
	}))
	seedCredential(t, store, "stored-token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := mgr.Bootstrap(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateUnknown, state)
	assert.Equal(t, "stored-token", store.Token(), "cancellation must not discard the credential")
}

func TestLoginPersistsSession(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponseJSON("fresh-token")))
	}))

	user, err := mgr.Login(context.Background(), "ada@pagereach.io", "hunter2")

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, mgr.State())
	assert.Equal(t, "ada@pagereach.io", user.Email)
	assert.Equal(t, "fresh-token", store.Token())

	cred := store.Load()
	require.NotNil(t, cred)
	require.NotNil(t, cred.User)
	assert.Equal(t, "Ada", cred.User.FirstName)
}

func TestLoginNormalizesEmail(t *testing.T) {
	mgr, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@pagereach.io", body.Email)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponseJSON("fresh-token")))
	}))

	_, err := mgr.Login(context.Background(), "  Ada@PageReach.IO ", "hunter2")
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))

	user, err := mgr.Login(context.Background(), "ada@pagereach.io", "wrong")

	require.Error(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "Invalid email or password. Please check your credentials.", err.Error())
	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Empty(t, store.Token())
}

func TestLoginServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	store := credentials.NewStore(filepath.Join(t.TempDir(), "credentials.json"), zap.NewNop())
	api := backend.NewClient(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 1}, store, zap.NewNop())
	mgr := NewManager(api, store, zap.NewNop())

	_, err := mgr.Login(context.Background(), "ada@pagereach.io", "hunter2")

	require.Error(t, err)
	assert.Equal(t, "Cannot reach the server. Please check your connection and try again.", err.Error())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mgr, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	}))

	_, err := mgr.Register(context.Background(), backend.RegisterRequest{
		Email:     "ada@pagereach.io",
		Password:  "hunter2",
		FirstName: "Ada",
		LastName:  "Ops",
	})

	require.Error(t, err)
	assert.Equal(t, "This email is already registered. Try signing in instead.", err.Error())
	assert.Equal(t, StateAnonymous, mgr.State())
}

func TestRegisterSignsIn(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/register", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponseJSON("first-token")))
	}))

	user, err := mgr.Register(context.Background(), backend.RegisterRequest{
		Email:     "ada@pagereach.io",
		Password:  "hunter2",
		FirstName: "Ada",
		LastName:  "Ops",
	})

	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, mgr.State())
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, "first-token", store.Token())
}

func TestLogoutIsIdempotent(t *testing.T) {
	var logouts int32
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/logout" {
			atomic.AddInt32(&logouts, 1)
		}
		w.Write([]byte(`{"message":"Successfully logged out"}`))
	}))
	seedCredential(t, store, "stored-token")

	mgr.Logout(context.Background())
	mgr.Logout(context.Background())

	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Empty(t, store.Token())
	assert.EqualValues(t, 1, atomic.LoadInt32(&logouts), "second logout has no token to revoke")
}

func TestLogoutSurvivesBackendFailure(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	seedCredential(t, store, "stored-token")

	mgr.Logout(context.Background())

	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Empty(t, store.Token())
}

func TestRefreshUserUpdatesSnapshot(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"7","email":"ada@pagereach.io","first_name":"Adaline","last_name":"Ops","role":"admin","is_active":true,"is_verified":true}`))
	}))
	seedCredential(t, store, "stored-token")

	user, err := mgr.RefreshUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Adaline", user.FirstName)
	assert.Equal(t, backend.RoleAdmin, user.Role)

	cred := store.Load()
	require.NotNil(t, cred)
	require.NotNil(t, cred.User)
	assert.Equal(t, "Adaline", cred.User.FirstName)
}

func TestRefreshUserTransientFailureKeepsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponseJSON("fresh-token")))
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mgr, store := newTestManager(t, mux)

	_, err := mgr.Login(context.Background(), "ada@pagereach.io", "hunter2")
	require.NoError(t, err)

	_, err = mgr.RefreshUser(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateAuthenticated, mgr.State(), "a transient fetch failure is not a logout")
	require.NotNil(t, mgr.User())
	assert.Equal(t, "fresh-token", store.Token())
}

func TestRefreshTokenPersistsNewToken(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/refresh", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponseJSON("rotated-token")))
	}))
	seedCredential(t, store, "stored-token")

	require.NoError(t, mgr.RefreshToken(context.Background()))
	assert.Equal(t, "rotated-token", store.Token())
}

func TestInvalidateDropsSession(t *testing.T) {
	mgr, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenResponseJSON("fresh-token")))
	}))

	_, err := mgr.Login(context.Background(), "ada@pagereach.io", "hunter2")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, mgr.State())

	mgr.Invalidate()

	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Nil(t, mgr.User())
}

func TestTokenExpiry(t *testing.T) {
	mgr, store := newTestManager(t, http.NotFoundHandler())

	_, ok := mgr.TokenExpiry()
	assert.False(t, ok, "no credential means no expiry")

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     "ada@pagereach.io",
		"user_id": "7",
		"exp":     exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	seedCredential(t, store, signed)

	got, ok := mgr.TokenExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp), "expiry should come straight from the exp claim")
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	mgr, store := newTestManager(t, http.NotFoundHandler())
	seedCredential(t, store, "not-a-jwt")

	_, ok := mgr.TokenExpiry()
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
}
