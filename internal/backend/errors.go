// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrNotFound matches any *StatusError with a 404 status via errors.Is.
	ErrNotFound = errors.New("backend resource not found")

	// ErrInvalidRequest wraps failures to build the outgoing request, which are
	// never the backend's fault.
	ErrInvalidRequest = errors.New("invalid backend request")
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       string

	// Message is the backend's "message" field when the body carried one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Is reports 404 responses as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err is a 4xx from the backend. Such errors describe the
// request, not backend health.
func IsClientError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500
	}
	return false
}

// UserMessage returns the text to show a user for err: the backend's own message when it
// sent one, else fallback.
func UserMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// readBodyForError reads the response body for error reporting (max 64KB)
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// newStatusError builds a StatusError from a failed response, picking up a
// {"message": "..."} body when present.
func newStatusError(resp *http.Response) *StatusError {
	body := readBodyForError(resp.Body)
	se := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}

	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil {
		se.Message = msg.Message
		if se.Message == "" {
			se.Message = msg.Error
		}
	}
	return se
}
