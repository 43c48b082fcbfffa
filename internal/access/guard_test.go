package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagereach/console/internal/backend"
)

func completeUser(role backend.Role) *backend.User {
	return &backend.User{
		ID:    "7",
		Email: "ada@pagereach.io",
		Role:  role,
		Profile: &backend.Profile{
			CompanyName: "PageReach",
			PhoneNumber: "+1 555 0100",
		},
	}
}

func TestEvaluateUnauthenticated(t *testing.T) {
	paths := []string{"/dashboard", "/admin", "/campaigns/42", "/"}
	for _, path := range paths {
		d := Evaluate(nil, []backend.Role{backend.RoleAdmin}, true, path)
		assert.False(t, d.Allow, "path %s", path)
		assert.Equal(t, "/", d.RedirectTo)
		assert.Equal(t, ReasonUnauthenticated, d.Reason)
	}

	// No role requirement changes nothing for a signed-out user.
	d := Evaluate(nil, nil, false, "/dashboard")
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
}

func TestEvaluateRoleMismatchRedirectsToRoleHome(t *testing.T) {
	tests := []struct {
		role     backend.Role
		required []backend.Role
		want     string
	}{
		{backend.RoleUser, []backend.Role{backend.RoleAdmin}, "/dashboard"},
		{backend.RoleUser, []backend.Role{backend.RoleAdmin, backend.RoleOwner}, "/dashboard"},
		{backend.RoleAdmin, []backend.Role{backend.RoleOwner}, "/admin"},
		{backend.RoleOwner, []backend.Role{backend.RoleUser}, "/owner"},
		{backend.Role("superuser"), []backend.Role{backend.RoleAdmin}, "/dashboard"},
	}

	for _, tt := range tests {
		d := Evaluate(completeUser(tt.role), tt.required, false, "/somewhere")
		assert.False(t, d.Allow, "role %s", tt.role)
		assert.Equal(t, ReasonRoleMismatch, d.Reason)
		assert.Equal(t, tt.want, d.RedirectTo, "role %s", tt.role)
	}
}

func TestEvaluateRoleMatch(t *testing.T) {
	d := Evaluate(completeUser(backend.RoleAdmin), []backend.Role{backend.RoleAdmin, backend.RoleOwner}, false, "/admin")
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonAllowed, d.Reason)
	assert.Empty(t, d.RedirectTo)
}

func TestEvaluateEmptyRequirementAdmitsAnyRole(t *testing.T) {
	for _, role := range []backend.Role{backend.RoleUser, backend.RoleAdmin, backend.RoleOwner} {
		d := Evaluate(completeUser(role), nil, false, "/campaigns")
		assert.True(t, d.Allow, "role %s", role)
	}
}

func TestEvaluateIncompleteProfile(t *testing.T) {
	user := &backend.User{ID: "7", Email: "ada@pagereach.io", Role: backend.RoleUser}

	d := Evaluate(user, nil, true, "/dashboard")
	assert.False(t, d.Allow)
	assert.Equal(t, "/contact-info", d.RedirectTo)
	assert.Equal(t, ReasonProfileIncomplete, d.Reason)

	// The contact-info surface itself must stay reachable or the user
	// could never complete the profile.
	d = Evaluate(user, nil, true, "/contact-info")
	assert.True(t, d.Allow)

	// Surfaces that do not insist on a profile stay open.
	d = Evaluate(user, nil, false, "/dashboard")
	assert.True(t, d.Allow)
}

func TestEvaluateRoleBeatsProfile(t *testing.T) {
	user := &backend.User{ID: "7", Email: "ada@pagereach.io", Role: backend.RoleUser}

	d := Evaluate(user, []backend.Role{backend.RoleAdmin}, true, "/admin")
	assert.Equal(t, ReasonRoleMismatch, d.Reason)
	assert.Equal(t, "/dashboard", d.RedirectTo)
}

func TestRoleHomePath(t *testing.T) {
	assert.Equal(t, "/owner", RoleHomePath(backend.RoleOwner))
	assert.Equal(t, "/admin", RoleHomePath(backend.RoleAdmin))
	assert.Equal(t, "/dashboard", RoleHomePath(backend.RoleUser))
	assert.Equal(t, "/dashboard", RoleHomePath(backend.Role("intern")))
}

func TestPostLoginPath(t *testing.T) {
	mem := &PathMemory{}

	// Nothing remembered: land on the role home.
	assert.Equal(t, "/admin", PostLoginPath(completeUser(backend.RoleAdmin), mem))

	// A remembered path wins and is consumed.
	mem.Remember("/campaigns/42")
	assert.Equal(t, "/campaigns/42", PostLoginPath(completeUser(backend.RoleAdmin), mem))
	assert.Equal(t, "/admin", PostLoginPath(completeUser(backend.RoleAdmin), mem))

	assert.Equal(t, "/dashboard", PostLoginPath(completeUser(backend.RoleUser), nil))
}

func TestPathMemory(t *testing.T) {
	mem := &PathMemory{}

	_, ok := mem.Consume()
	assert.False(t, ok)

	mem.Remember("/campaigns/42")
	path, ok := mem.Consume()
	assert.True(t, ok)
	assert.Equal(t, "/campaigns/42", path)

	_, ok = mem.Consume()
	assert.False(t, ok, "consume clears the memory")

	mem.Remember("/")
	_, ok = mem.Consume()
	assert.False(t, ok, "root is never remembered")

	mem.Remember("/admin")
	mem.Clear()
	_, ok = mem.Consume()
	assert.False(t, ok)
}
