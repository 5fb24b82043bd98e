// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package errutil provides helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error at error level with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorContext logs err at the given level. For oops errors the code and
// context map are emitted as separate attributes; other errors are logged as-is.
func LogErrorContext(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.LogAttrs(ctx, level, msg, slog.Any("error", err))
		return
	}

	attrs := []slog.Attr{slog.String("error", oopsErr.Error())}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, slog.Any("code", code))
	}
	if fields := oopsErr.Context(); len(fields) > 0 {
		attrs = append(attrs, slog.Any("context", fields))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

// PublicMessage returns the end-user message attached to err, or fallback.
func PublicMessage(err error, fallback string) string {
	return oops.GetPublic(err, fallback)
}
