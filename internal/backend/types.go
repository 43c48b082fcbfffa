package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Role is a user's access level. The backend only ever grants user, admin
// or owner; anything else (including future roles this build does not know)
// decodes to RoleUser so an unknown role can never widen access.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// NormalizeRole maps a raw role string onto a known Role, defaulting to
// RoleUser for anything unrecognized.
func NormalizeRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleOwner:
		return RoleOwner
	default:
		return RoleUser
	}
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = NormalizeRole(s)
	return nil
}

// User is the account record returned by /api/auth/me and embedded in
// token responses. Profile and Subscription are only present on /me.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       Role       `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`

	Profile      *Profile      `json:"profile,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Profile holds the optional contact details attached to an account.
type Profile struct {
	PhoneNumber string `json:"phone_number"`
	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title"`
	WebsiteURL  string `json:"website_url"`
}

// Subscription holds the account's plan limits.
type Subscription struct {
	PlanName    string `json:"plan_name"`
	MaxWebsites int    `json:"max_websites"`
}

// FullName returns the display name, falling back to the email address
// when no name is set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// ContactInfoCompleted reports whether the account has filled in the
// contact details some areas of the product require before use.
func (u *User) ContactInfoCompleted() bool {
	return u.Profile != nil &&
		strings.TrimSpace(u.Profile.CompanyName) != "" &&
		strings.TrimSpace(u.Profile.PhoneNumber) != ""
}

// TokenResponse is returned by login, register and refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

// RegisterRequest is the signup payload. Email and Password are required;
// the rest seeds the profile.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

// CampaignState is a campaign lifecycle state. The backend stores these
// uppercase; legacy rows carry lowercase variants which NormalizeState folds
// into the canonical form.
type CampaignState string

const (
	StatePending    CampaignState = "PENDING"
	StateProcessing CampaignState = "PROCESSING"
	StateActive     CampaignState = "ACTIVE"
	StateCompleted  CampaignState = "COMPLETED"
	StateStopped    CampaignState = "STOPPED"
	StateFailed     CampaignState = "FAILED"
	StateDraft      CampaignState = "DRAFT"
)

// NormalizeState uppercases a raw status string so "running" and "ACTIVE"
// era rows compare consistently.
func NormalizeState(s string) CampaignState {
	up := CampaignState(strings.ToUpper(strings.TrimSpace(s)))
	if up == "RUNNING" {
		return StateActive
	}
	return up
}

func (s *CampaignState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeState(raw)
	return nil
}

// Terminal reports whether the state means the campaign is finished.
// Matches the backend's is_complete derivation.
func (s CampaignState) Terminal() bool {
	switch s {
	case StateCompleted, StateStopped, StateFailed:
		return true
	}
	return false
}

// Campaign is a list/detail row from /api/campaigns.
type Campaign struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Status          CampaignState `json:"status"`
	TotalURLs       int           `json:"total_urls"`
	Processed       int           `json:"processed"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	ProgressPercent float64       `json:"progress_percent"`
	SuccessRate     float64       `json:"success_rate"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	CreatedAt       string        `json:"created_at,omitempty"`
	UpdatedAt       string        `json:"updated_at,omitempty"`
}

// CampaignStatus is the live progress snapshot from
// /api/campaigns/{id}/status and from campaign_update push messages.
type CampaignStatus struct {
	CampaignID      string        `json:"campaign_id"`
	Status          CampaignState `json:"status"`
	Total           int           `json:"total"`
	Processed       int           `json:"processed"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	ProgressPercent float64       `json:"progress_percent"`
	IsComplete      bool          `json:"is_complete"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	Message         string        `json:"message,omitempty"`
}

// Validate reports contract violations in a status snapshot. A processed
// count above the total means the backend sent inconsistent numbers; the
// snapshot is still applied as-is, never repaired client-side.
func (s *CampaignStatus) Validate() error {
	if s.Processed > s.Total {
		return fmt.Errorf("campaign %s: processed %d exceeds total %d", s.CampaignID, s.Processed, s.Total)
	}
	return nil
}

// ListOptions filters GET /api/campaigns.
type ListOptions struct {
	Page    int    `url:"page,omitempty"`
	PerPage int    `url:"per_page,omitempty"`
	Limit   int    `url:"limit,omitempty"`
	Status  string `url:"status,omitempty"`
}

// StartCampaignRequest describes a campaign launch. CSV is streamed into
// the multipart body; Filename must end in .csv or the backend rejects it.
type StartCampaignRequest struct {
	Name       string
	Message    string
	Filename   string
	CSV        io.Reader
	Proxy      string
	UseCaptcha bool
	Settings   string
}

// ProcessingReport summarizes the server-side CSV parse during start.
type ProcessingReport struct {
	ValidURLs         int `json:"valid_urls"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	InvalidURLs       int `json:"invalid_urls"`
}

// StartCampaignResult is the response of POST /api/campaigns/start.
type StartCampaignResult struct {
	Success           bool             `json:"success"`
	Message           string           `json:"message"`
	CampaignID        string           `json:"campaign_id"`
	TotalURLs         int              `json:"total_urls"`
	Status            CampaignState    `json:"status"`
	AutomationStarted bool             `json:"automation_started"`
	AutomationError   string           `json:"automation_error,omitempty"`
	ProcessingReport  ProcessingReport `json:"processing_report"`
}
