package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"
)

// AdminUsersOptions pages GET /api/admin/users.
type AdminUsersOptions struct {
	Page       int  `url:"page,omitempty"`
	PerPage    int  `url:"per_page,omitempty"`
	ActiveOnly bool `url:"active_only,omitempty"`
}

// AdminUserPage is one page of the user directory.
type AdminUserPage struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
}

// AdminUsers lists accounts. The backend enforces admin access and
// answers 403 "Admin access required" otherwise.
func (c *Client) AdminUsers(ctx context.Context, opts AdminUsersOptions) (*AdminUserPage, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding admin users options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/users", params, nil)
	if err != nil {
		return nil, err
	}

	var page AdminUserPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing admin users response: %w", err)
	}
	return &page, nil
}

// AdminUserUpdate is a partial user update; nil fields are left alone.
type AdminUserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// AdminUpdateUser applies a partial update to an account.
func (c *Client) AdminUpdateUser(ctx context.Context, userID string, update AdminUserUpdate) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/api/admin/users/"+userID, nil, update)
	return err
}

// AdminMetrics is the platform-wide counters report.
type AdminMetrics struct {
	Users struct {
		Total        int     `json:"total"`
		Active       int     `json:"active"`
		Verified     int     `json:"verified"`
		Admins       int     `json:"admins"`
		NewThisWeek  int     `json:"new_this_week"`
		ActivityRate float64 `json:"activity_rate"`
	} `json:"users"`
	Campaigns struct {
		Total  int `json:"total"`
		Active int `json:"active"`
		Today  int `json:"today"`
	} `json:"campaigns"`
	Submissions struct {
		Total       int     `json:"total"`
		Successful  int     `json:"successful"`
		WithCaptcha int     `json:"with_captcha"`
		SuccessRate float64 `json:"success_rate"`
		Today       int     `json:"today"`
	} `json:"submissions"`
	Websites struct {
		Total     int `json:"total"`
		WithForms int `json:"with_forms"`
	} `json:"websites"`
	System struct {
		Status      string  `json:"status"`
		QueryTimeMS float64 `json:"query_time_ms"`
	} `json:"system"`
}

// AdminMetrics fetches platform-wide counters. Admin only.
func (c *Client) AdminMetrics(ctx context.Context) (*AdminMetrics, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/metrics", nil, nil)
	if err != nil {
		return nil, err
	}

	var metrics AdminMetrics
	if err := json.Unmarshal(body, &metrics); err != nil {
		return nil, fmt.Errorf("parsing admin metrics response: %w", err)
	}
	return &metrics, nil
}

// SystemStatus is the backend health summary.
type SystemStatus struct {
	Status          string            `json:"status"`
	Database        string            `json:"database"`
	ResponseTimeMS  float64           `json:"response_time_ms"`
	TablesAvailable int               `json:"tables_available"`
	Services        map[string]string `json:"services"`
	Timestamp       string            `json:"timestamp"`
}

// SystemStatus fetches backend health. Admin only.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/system-status", nil, nil)
	if err != nil {
		return nil, err
	}

	var status SystemStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parsing system status response: %w", err)
	}
	return &status, nil
}
