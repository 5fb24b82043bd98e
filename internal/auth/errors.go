// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when creating a user whose username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrInvalidCredentials is returned for any failed login. The message never
// reveals whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// Failure reasons recorded on invalid-credential errors. They are for logs only.
const (
	ReasonUnknownUser   = "incorrect username"
	ReasonWrongPassword = "incorrect password"
)

// FailureReason returns the internal reason attached to an invalid-credentials
// error, or an empty string if err carries none.
func FailureReason(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	reason, _ := oopsErr.Context()["reason"].(string) //nolint:errcheck // type assertion, not an error
	return reason
}

func invalidCredentials(reason string) error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		With("reason", reason).
		Wrap(ErrInvalidCredentials)
}
