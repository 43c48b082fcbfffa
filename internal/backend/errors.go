package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError wraps a transport failure where no HTTP response arrived
// (DNS, refused connection, timeout). The request may or may not have
// reached the server.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the backend. Detail carries the
// body's detail string when one was present.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, http.StatusText(e.Status))
}

// FieldError is one entry of a 422 validation response.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is an HTTP 422 with per-field messages.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field != "" {
			parts = append(parts, f.Field+": "+f.Message)
		} else {
			parts = append(parts, f.Message)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// detailEntry is one element of FastAPI's 422 detail list.
type detailEntry struct {
	Loc  []json.RawMessage `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
}

// parseErrorBody turns a non-2xx response body into a typed error.
// The backend emits either {"detail": "..."} or, for validation failures,
// {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
func parseErrorBody(status int, body []byte) error {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return &HTTPError{Status: status}
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return &HTTPError{Status: status, Detail: detail}
	}

	var entries []detailEntry
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		fields := make([]FieldError, 0, len(entries))
		for _, entry := range entries {
			fields = append(fields, FieldError{
				Field:   fieldFromLoc(entry.Loc),
				Message: entry.Msg,
			})
		}
		if status == http.StatusUnprocessableEntity {
			return &ValidationError{Fields: fields}
		}
		ve := &ValidationError{Fields: fields}
		return &HTTPError{Status: status, Detail: ve.Error()}
	}

	return &HTTPError{Status: status, Detail: strings.TrimSpace(string(envelope.Detail))}
}

// fieldFromLoc extracts the field name from a detail loc like
// ["body", "email"]. The leading segment names the request part and is
// dropped.
func fieldFromLoc(loc []json.RawMessage) string {
	parts := make([]string, 0, len(loc))
	for _, raw := range loc {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parts = append(parts, s)
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			parts = append(parts, fmt.Sprintf("%d", n))
		}
	}
	if len(parts) > 1 && (parts[0] == "body" || parts[0] == "query" || parts[0] == "path") {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
