package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleUnmarshalDefaultsUnknownToUser(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{`"user"`, RoleUser},
		{`"admin"`, RoleAdmin},
		{`"owner"`, RoleOwner},
		{`"OWNER"`, RoleOwner},
		{`"superuser"`, RoleUser},
		{`""`, RoleUser},
	}

	for _, tt := range tests {
		var r Role
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &r))
		assert.Equal(t, tt.want, r, "raw %s", tt.raw)
	}
}

func TestUserDecodeWithProfile(t *testing.T) {
	raw := `{
		"id": "u-1",
		"email": "jane@example.com",
		"first_name": "Jane",
		"last_name": "Doe",
		"role": "admin",
		"is_active": true,
		"is_verified": true,
		"profile": {
			"phone_number": "+1 555 0100",
			"company_name": "Acme",
			"job_title": "Ops",
			"website_url": "https://acme.test"
		},
		"subscription": {"plan_name": "Pro", "max_websites": 100}
	}`

	var u User
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, "Jane Doe", u.FullName())
	assert.True(t, u.ContactInfoCompleted())
	require.NotNil(t, u.Subscription)
	assert.Equal(t, "Pro", u.Subscription.PlanName)
}

func TestContactInfoCompleted(t *testing.T) {
	u := User{Email: "x@y.com"}
	assert.False(t, u.ContactInfoCompleted(), "no profile at all")

	u.Profile = &Profile{CompanyName: "Acme"}
	assert.False(t, u.ContactInfoCompleted(), "phone missing")

	u.Profile.PhoneNumber = "+1 555 0100"
	assert.True(t, u.ContactInfoCompleted())
}

func TestFullNameFallsBackToEmail(t *testing.T) {
	u := User{Email: "solo@example.com"}
	assert.Equal(t, "solo@example.com", u.FullName())

	u.FirstName = "Solo"
	assert.Equal(t, "Solo", u.FullName())
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, StateActive, NormalizeState("running"))
	assert.Equal(t, StateActive, NormalizeState("ACTIVE"))
	assert.Equal(t, StateProcessing, NormalizeState("processing"))
	assert.Equal(t, StateCompleted, NormalizeState("COMPLETED"))
}

func TestCampaignStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateStopped.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateProcessing.Terminal())
	assert.False(t, StateActive.Terminal())
	assert.False(t, StatePending.Terminal())
}

func TestCampaignStatusValidate(t *testing.T) {
	ok := CampaignStatus{CampaignID: "c-1", Total: 10, Processed: 10}
	assert.NoError(t, ok.Validate())

	bad := CampaignStatus{CampaignID: "c-1", Total: 10, Processed: 11}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds total")
}
