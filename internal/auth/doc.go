// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package auth provides credential verification and session identity for ProfileHub.
//
// # Domain Types
//
// Users should be created with NewUser, which validates the username and
// requires an already-computed password hash. Direct struct initialization
// bypasses validation and may create invalid state.
//
// # Components
//
//   - PasswordHasher - one-way salted hashing with constant-time verification
//   - UserStore - persistence contract implemented by the postgres and sqlite packages
//   - Authenticator - looks a user up and checks the candidate password
//   - IdentitySerializer - maps a user to an opaque session token and back
//   - Service - signup, login, profile edits, password changes and account deletion
//
// Constructors validate their dependencies and return an error when one is missing.
package auth
