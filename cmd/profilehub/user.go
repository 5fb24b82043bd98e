// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"bufio"
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/pkg/errutil"
)

// NewUserCmd creates the user command for account administration.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long: `Create and delete accounts and reset passwords. Passwords are read from
the first line of standard input.`,
	}

	var profile auth.Profile
	create := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.Signup(ctx, auth.SignupRequest{
					Username:    args[0],
					Password:    password,
					DisplayName: profile.DisplayName,
					Bio:         profile.Bio,
				})
				if err != nil {
					return err
				}
				cmd.Printf("Created %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&profile.DisplayName, "display-name", "", "display name")
	create.Flags().StringVar(&profile.Bio, "bio", "", "profile bio")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				if err := svc.DeleteAccount(ctx, user.ID); err != nil {
					return err
				}
				cmd.Printf("Deleted %s\n", user.Username)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "passwd USERNAME",
		Short: "Set an account's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				if err := svc.SetPassword(ctx, user.ID, password); err != nil {
					return err
				}
				cmd.Printf("Password updated for %s\n", user.Username)
				return nil
			})
		},
	})

	return cmd
}

// withService opens the configured store and runs fn with an account service.
func withService(cmd *cobra.Command, fn func(context.Context, *auth.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	users, err := openUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer users.Close()

	svc, err := newAuthService(cfg, users, logger)
	if err != nil {
		return err
	}
	if err := fn(ctx, svc); err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "user command failed", err)
		return err
	}
	return nil
}

// readPassword reads the first line of standard input. Trailing CR and LF
// are dropped; every other character is part of the password.
func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be given on standard input")
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must not be empty")
	}
	return password, nil
}
