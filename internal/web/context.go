// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"context"

	"github.com/profilehub/profilehub/internal/auth"
)

type ctxKey struct{}

// requestState is what loadSession resolves for a request.
type requestState struct {
	session *Session
	user    *auth.User
	flash   Flashes
}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// stateFrom never returns nil; requests that bypassed loadSession get an
// empty anonymous state.
func stateFrom(ctx context.Context) *requestState {
	if st, ok := ctx.Value(ctxKey{}).(*requestState); ok && st != nil {
		return st
	}
	return &requestState{}
}

// CurrentUser returns the user authenticated for the request, or nil.
func CurrentUser(ctx context.Context) *auth.User {
	return stateFrom(ctx).user
}
