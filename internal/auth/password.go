// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth

import (
	"fmt"
	"unicode/utf8"

	"github.com/samber/oops"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

// Password length limits. Passwords beyond MaxPasswordLength are refused
// so a single login cannot force an arbitrarily expensive hash.
const (
	DefaultMinPasswordLength = 8
	MaxPasswordLength        = 256
)

// PasswordPolicy describes the requirements for a new password.
type PasswordPolicy struct {
	MinLength int

	// MinEntropyBits enables an entropy check when positive.
	MinEntropyBits float64
}

// DefaultPasswordPolicy returns the policy used when none is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: DefaultMinPasswordLength}
}

// Validate checks a candidate password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinPasswordLength
	}

	n := utf8.RuneCountInString(password)
	if n < minLen {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("min", minLen).
			Public(fmt.Sprintf("Password must be at least %d characters long.", minLen)).
			Errorf("password shorter than %d characters", minLen)
	}
	if n > MaxPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("max", MaxPasswordLength).
			Public(fmt.Sprintf("Password must be at most %d characters long.", MaxPasswordLength)).
			Errorf("password longer than %d characters", MaxPasswordLength)
	}

	if p.MinEntropyBits > 0 {
		if err := passwordvalidator.Validate(password, p.MinEntropyBits); err != nil {
			return oops.Code("AUTH_WEAK_PASSWORD").
				With("min_entropy_bits", p.MinEntropyBits).
				Public("Password is too weak: "+err.Error()+".").
				Wrap(err)
		}
	}
	return nil
}
