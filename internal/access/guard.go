// Package access decides whether the signed-in user may open a given
// console surface, and where to send them when not. Evaluate is pure;
// remembered-path bookkeeping lives in PathMemory so callers own the
// side effects.
package access

import (
	"sync"

	"github.com/pagereach/console/internal/backend"
)

// Reason explains a Decision.
type Reason int

const (
	ReasonAllowed Reason = iota
	ReasonUnauthenticated
	ReasonRoleMismatch
	ReasonProfileIncomplete
)

func (r Reason) String() string {
	switch r {
	case ReasonAllowed:
		return "allowed"
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonRoleMismatch:
		return "role-mismatch"
	case ReasonProfileIncomplete:
		return "profile-incomplete"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an access check. When Allow is false,
// RedirectTo names where the caller should send the user instead.
type Decision struct {
	Allow      bool
	RedirectTo string
	Reason     Reason
}

// Evaluate checks one surface for one user. Rules apply in order:
// unauthenticated beats role mismatch beats incomplete profile.
//
// When the user is signed out the caller should Remember currentPath so
// the user lands back there after signing in.
func Evaluate(user *backend.User, required []backend.Role, requireProfile bool, currentPath string) Decision {
	if user == nil {
		return Decision{Allow: false, RedirectTo: "/", Reason: ReasonUnauthenticated}
	}

	role := backend.NormalizeRole(string(user.Role))

	if len(required) > 0 && !roleIn(role, required) {
		return Decision{Allow: false, RedirectTo: RoleHomePath(role), Reason: ReasonRoleMismatch}
	}

	if requireProfile && !user.ContactInfoCompleted() && currentPath != "/contact-info" {
		return Decision{Allow: false, RedirectTo: "/contact-info", Reason: ReasonProfileIncomplete}
	}

	return Decision{Allow: true, Reason: ReasonAllowed}
}

// RoleHomePath is the landing surface for a role. Owners and admins get
// their consoles; everyone else, including anything unrecognized, gets
// the dashboard.
func RoleHomePath(r backend.Role) string {
	switch backend.NormalizeRole(string(r)) {
	case backend.RoleOwner:
		return "/owner"
	case backend.RoleAdmin:
		return "/admin"
	default:
		return "/dashboard"
	}
}

// PostLoginPath resolves where a freshly signed-in user goes: the path
// they were originally after if one was remembered, otherwise their
// role home.
func PostLoginPath(user *backend.User, mem *PathMemory) string {
	if mem != nil {
		if path, ok := mem.Consume(); ok {
			return path
		}
	}
	if user == nil {
		return "/"
	}
	return RoleHomePath(user.Role)
}

func roleIn(role backend.Role, set []backend.Role) bool {
	for _, r := range set {
		if role == r {
			return true
		}
	}
	return false
}

// PathMemory holds the one path a signed-out user tried to reach, so
// login can return them there. Session-scoped and in-memory only.
type PathMemory struct {
	mu   sync.Mutex
	path string
}

// Remember stores the path. Root and empty paths are not worth coming
// back to and are ignored.
func (p *PathMemory) Remember(path string) {
	if path == "" || path == "/" {
		return
	}
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}

// Consume returns the remembered path and forgets it.
func (p *PathMemory) Consume() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return "", false
	}
	path := p.path
	p.path = ""
	return path, true
}

// Clear drops any remembered path without handing it out, for hosts
// that end the session outside the login flow.
func (p *PathMemory) Clear() {
	p.mu.Lock()
	p.path = ""
	p.mu.Unlock()
}
