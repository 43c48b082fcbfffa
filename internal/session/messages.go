package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pagereach/console/internal/backend"
)

// User-facing copy. These exact strings are part of the product; change
// them only together with the frontend.
const (
	MsgNetwork        = "Cannot reach the server. Please check your connection and try again."
	MsgBadCredentials = "Invalid email or password. Please check your credentials."
	MsgForbidden      = "You don't have permission to do that."
	MsgEmailTaken     = "This email is already registered. Try signing in instead."
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgGeneric        = "Something went wrong. Please try again."
)

// FlowError is an error whose text is safe to show the user. The
// underlying backend error stays reachable through Unwrap for logging
// and tests, but never reaches the terminal.
type FlowError struct {
	Message string
	Cause   error
}

func (e *FlowError) Error() string { return e.Message }

func (e *FlowError) Unwrap() error { return e.Cause }

// backend 403 details that are already written for end users and pass
// through verbatim.
var forbiddenDetails = []string{
	"Account is inactive",
	"Please verify your email to login",
	"Admin access required",
}

// Describe translates a backend error into user-facing copy. An error
// that already carries user-facing copy (a FlowError) keeps its message,
// so the 401-at-login reading chosen by Login survives a second pass.
// Context cancellation is not translated; callers pass it through
// untouched.
func Describe(err error) string {
	return describe(err, false)
}

// describeLogin is Describe with the login reading of 401: the
// credentials were wrong, not the session stale.
func describeLogin(err error) string {
	return describe(err, true)
}

func describe(err error, login bool) string {
	if err == nil {
		return ""
	}

	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Message
	}

	var ve *backend.ValidationError
	if errors.As(err, &ve) {
		parts := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			if f.Field != "" {
				parts = append(parts, capitalize(f.Field)+": "+f.Message)
			} else {
				parts = append(parts, f.Message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ". ")
		}
		return MsgGeneric
	}

	var he *backend.HTTPError
	if errors.As(err, &he) {
		switch he.Status {
		case http.StatusUnauthorized:
			if login {
				return MsgBadCredentials
			}
			return MsgSessionExpired
		case http.StatusForbidden:
			for _, known := range forbiddenDetails {
				if he.Detail == known {
					return he.Detail
				}
			}
			return MsgForbidden
		case http.StatusConflict:
			return MsgEmailTaken
		case http.StatusBadRequest, http.StatusNotFound:
			if he.Detail != "" {
				return he.Detail
			}
			return MsgGeneric
		default:
			return MsgGeneric
		}
	}

	if backend.IsNetwork(err) {
		return MsgNetwork
	}

	return MsgGeneric
}

// flowErr wraps a backend error as a FlowError, passing cancellation
// through untouched so callers can tell "user gave up" from "it failed".
func flowErr(err error, login bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &FlowError{Message: describe(err, login), Cause: err}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
