package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
)

// Credential is the persisted session: the bearer token plus a cached
// snapshot of the account it belongs to. Token and snapshot are written
// together or not at all.
type Credential struct {
	AccessToken string        `json:"access_token"`
	UserID      string        `json:"user_id"`
	User        *backend.User `json:"user,omitempty"`
	SavedAt     time.Time     `json:"saved_at"`
}

// Store persists a single credential to a JSON file. Callers treat a nil
// Load result as "no session"; storage failures degrade to signed-out
// behavior instead of propagating, because a console that cannot write
// its config dir must still work for one process lifetime.
type Store struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	cred *Credential
}

// NewStore creates a credential store at path.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save atomically persists the credential: it lands in a temp file first
// and is renamed over the real one, so a crash mid-write can never leave
// a torn token behind.
func (s *Store) Save(cred Credential) error {
	if cred.SavedAt.IsZero() {
		cred.SavedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = &cred

	b, err := json.MarshalIndent(&cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.log.Warn("credential dir not writable", zap.Error(err))
		return fmt.Errorf("mkdir credential dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		s.log.Warn("credential file not writable", zap.Error(err))
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil when none exists. Unreadable
// or corrupt files also yield nil: the caller sees "no session" and the
// next successful login overwrites the bad file.
func (s *Store) Load() *Credential {
	s.mu.RLock()
	if s.cred != nil {
		cred := *s.cred
		s.mu.RUnlock()
		return &cred
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("credential file unreadable", zap.Error(err))
		}
		return nil
	}

	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		s.log.Warn("credential file corrupt, ignoring", zap.Error(err))
		return nil
	}
	if cred.AccessToken == "" {
		return nil
	}

	s.cred = &cred
	out := cred
	return &out
}

// Clear removes the stored credential. Idempotent; a missing file is not
// an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("credential file not removable", zap.Error(err))
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or "" when signed out.
// Satisfies the backend client's CredentialSource.
func (s *Store) Token() string {
	if cred := s.Load(); cred != nil {
		return cred.AccessToken
	}
	return ""
}
