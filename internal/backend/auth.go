package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token. A wrong password comes
// back as an HTTPError with status 401.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}
	return &token, nil
}

// Register creates an account. The backend signs the new account in
// immediately, so the response carries a usable token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", nil, req)
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing register response: %w", err)
	}
	return &token, nil
}

// CurrentUser fetches the signed-in account, including profile and
// subscription details when present.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}
	return &user, nil
}

// Logout tells the backend the session is over. Tokens are stateless
// server-side, so this is bookkeeping; local teardown must not depend on
// it succeeding.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	return err
}

// RefreshToken trades the current token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context) (*TokenResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/auth/refresh", nil, nil)
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing refresh response: %w", err)
	}
	return &token, nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the signed-in account's password.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/change-password", nil, changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
	})
	return err
}

type emailRequest struct {
	Email string `json:"email"`
}

// ForgotPassword asks the backend to mail a reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/forgot-password", nil, emailRequest{Email: email})
	return err
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword completes a password reset using a mailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/reset-password", nil, resetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	return err
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail confirms an address using a mailed verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/verify-email", nil, verifyEmailRequest{Token: token})
	return err
}

// ResendVerification asks for a new verification mail.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/auth/resend-verification", nil, emailRequest{Email: email})
	return err
}
