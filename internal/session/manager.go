package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
	"github.com/pagereach/console/internal/credentials"
	"github.com/pagereach/console/internal/pkg/logger"
)

// State is where the session stands. It only ever moves along
// Unknown -> Checking -> Authenticated | Anonymous; Authenticated falls
// back to Anonymous on logout or invalidation.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Manager drives the sign-in lifecycle: bootstrap from stored
// credentials, login, register, logout, and user refresh. Every error
// it returns is already phrased for the user; raw transport errors
// never escape it.
type Manager struct {
	api   *backend.Client
	creds *credentials.Store
	log   *zap.Logger

	mu    sync.RWMutex
	state State
	user  *backend.User
}

// NewManager creates a session manager in StateUnknown.
func NewManager(api *backend.Client, creds *credentials.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		api:   api,
		creds: creds,
		log:   log,
		state: StateUnknown,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the signed-in account, or nil.
func (m *Manager) User() *backend.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) setState(state State, user *backend.User) {
	m.mu.Lock()
	m.state = state
	m.user = user
	m.mu.Unlock()
}

// Bootstrap restores the session at startup. No stored credential means
// Anonymous without touching the network. A stored credential is
// verified against /me; any verification failure silently ends in
// Anonymous with the store cleared, because a stale token at startup is
// routine, not an error worth showing.
func (m *Manager) Bootstrap(ctx context.Context) (State, error) {
	cred := m.creds.Load()
	if cred == nil {
		m.setState(StateAnonymous, nil)
		return StateAnonymous, nil
	}

	m.setState(StateChecking, nil)

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.setState(StateUnknown, nil)
			return StateUnknown, err
		}
		m.log.Info("stored session no longer valid",
			logger.Email("email", credEmail(cred)),
			zap.Error(err),
		)
		if clearErr := m.creds.Clear(); clearErr != nil {
			m.log.Warn("clearing stale credential failed", zap.Error(clearErr))
		}
		m.setState(StateAnonymous, nil)
		return StateAnonymous, nil
	}

	m.cacheUser(cred.AccessToken, user)
	m.setState(StateAuthenticated, user)
	return StateAuthenticated, nil
}

// Login signs in and persists the session. The email is normalized
// (trimmed, lowercased) before it goes on the wire. On failure the
// returned error carries the user-facing message; a wrong password
// reads "Invalid email or password. Please check your credentials."
func (m *Manager) Login(ctx context.Context, email, password string) (*backend.User, error) {
	email = normalizeEmail(email)
	m.setState(StateChecking, nil)

	tok, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setState(StateAnonymous, nil)
		m.log.Info("login failed", logger.Email("email", email), zap.Error(err))
		return nil, flowErr(err, true)
	}

	user := tok.User
	m.persist(tok)
	m.setState(StateAuthenticated, &user)
	m.log.Info("login succeeded", logger.Email("email", email), zap.String("role", string(user.Role)))

	out := user
	return &out, nil
}

// Register creates an account and signs it in. The email is normalized
// the same way Login normalizes it.
func (m *Manager) Register(ctx context.Context, req backend.RegisterRequest) (*backend.User, error) {
	req.Email = normalizeEmail(req.Email)
	m.setState(StateChecking, nil)

	tok, err := m.api.Register(ctx, req)
	if err != nil {
		m.setState(StateAnonymous, nil)
		m.log.Info("registration failed", logger.Email("email", req.Email), zap.Error(err))
		return nil, flowErr(err, false)
	}

	user := tok.User
	m.persist(tok)
	m.setState(StateAuthenticated, &user)
	m.log.Info("registration succeeded", logger.Email("email", req.Email))

	out := user
	return &out, nil
}

// Logout ends the session. The backend call is best effort; local state
// and the stored credential are always cleared, so calling it twice, or
// while offline, or when already signed out, all land in the same place.
func (m *Manager) Logout(ctx context.Context) {
	if m.creds.Token() != "" {
		if err := m.api.Logout(ctx); err != nil {
			m.log.Debug("backend logout failed, clearing locally anyway", zap.Error(err))
		}
	}
	if err := m.creds.Clear(); err != nil {
		m.log.Warn("clearing credential on logout failed", zap.Error(err))
	}
	m.setState(StateAnonymous, nil)
}

// RefreshUser re-fetches the signed-in account and updates the cached
// snapshot. A failed refresh does not change the session state: a
// transient fetch error is not a logout, and token invalidity is
// handled by the gateway's global 401 path, not here.
func (m *Manager) RefreshUser(ctx context.Context) (*backend.User, error) {
	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		return nil, flowErr(err, false)
	}

	if cred := m.creds.Load(); cred != nil {
		m.cacheUser(cred.AccessToken, user)
	}
	m.setState(StateAuthenticated, user)

	out := *user
	return &out, nil
}

// RefreshToken trades the stored token for a fresh one and persists it.
func (m *Manager) RefreshToken(ctx context.Context) error {
	tok, err := m.api.RefreshToken(ctx)
	if err != nil {
		return flowErr(err, false)
	}
	m.persist(tok)
	return nil
}

// Invalidate drops the in-memory session after the backend rejected the
// stored token. The credential store is already cleared by the gateway
// when this runs.
func (m *Manager) Invalidate() {
	m.setState(StateAnonymous, nil)
}

// TokenExpiry reports when the stored token expires, read from the
// token's own claims without verifying the signature (the backend is
// the only party that validates tokens; the console just displays the
// deadline). Returns false when signed out or the token is opaque.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	cred := m.creds.Load()
	if cred == nil {
		return time.Time{}, false
	}

	tok, _, err := jwt.NewParser().ParseUnverified(cred.AccessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ChangePassword rotates the password for the signed-in account.
func (m *Manager) ChangePassword(ctx context.Context, current, newPassword string) error {
	return flowErr(m.api.ChangePassword(ctx, current, newPassword), false)
}

// ForgotPassword requests a reset mail for the address.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return flowErr(m.api.ForgotPassword(ctx, email), false)
}

// ResetPassword completes a mailed password reset.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	return flowErr(m.api.ResetPassword(ctx, token, newPassword), false)
}

// VerifyEmail confirms the address with a mailed token.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	return flowErr(m.api.VerifyEmail(ctx, token), false)
}

// ResendVerification asks for a fresh verification mail.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	return flowErr(m.api.ResendVerification(ctx, email), false)
}

// persist writes token and user snapshot together. Storage failures are
// logged and swallowed: the in-memory session works for this process
// either way.
func (m *Manager) persist(tok *backend.TokenResponse) {
	user := tok.User
	if err := m.creds.Save(credentials.Credential{
		AccessToken: tok.AccessToken,
		UserID:      user.ID,
		User:        &user,
	}); err != nil {
		m.log.Warn("persisting credential failed", zap.Error(err))
	}
}

func (m *Manager) cacheUser(token string, user *backend.User) {
	if err := m.creds.Save(credentials.Credential{
		AccessToken: token,
		UserID:      user.ID,
		User:        user,
	}); err != nil {
		m.log.Warn("caching user snapshot failed", zap.Error(err))
	}
}

func credEmail(cred *credentials.Credential) string {
	if cred.User != nil {
		return cred.User.Email
	}
	return ""
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
