// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jellydator/validation"
)

type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
}

func (f loginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required),
		validation.Field(&f.Password, validation.Required),
	)
}

type signupForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

func parseSignupForm(r *http.Request) signupForm {
	return signupForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
		Bio:      strings.TrimSpace(r.PostForm.Get("bio")),
	}
}

func (f signupForm) Validate(minPasswordLength int) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required.Error("Username is required.")),
		validation.Field(&f.Password,
			validation.Required.Error("Password is required."),
			validation.RuneLength(minPasswordLength, 0).
				Error(fmt.Sprintf("Password must be at least %d characters long.", minPasswordLength)),
		),
	)
}

type profileForm struct {
	DisplayName string `json:"displayname"`
	Bio         string `json:"bio"`
}

func parseProfileForm(r *http.Request) profileForm {
	return profileForm{
		DisplayName: strings.TrimSpace(r.PostForm.Get("displayname")),
		Bio:         strings.TrimSpace(r.PostForm.Get("bio")),
	}
}

type passwordForm struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
	Confirm string `json:"confirm_password"`
}

func parsePasswordForm(r *http.Request) passwordForm {
	return passwordForm{
		Current: r.PostForm.Get("current_password"),
		New:     r.PostForm.Get("new_password"),
		Confirm: r.PostForm.Get("confirm_password"),
	}
}

func (f passwordForm) Validate(minPasswordLength int) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Current, validation.Required.Error("Current password is required.")),
		validation.Field(&f.New,
			validation.Required.Error("New password is required."),
			validation.RuneLength(minPasswordLength, 0).
				Error(fmt.Sprintf("Password must be at least %d characters long.", minPasswordLength)),
		),
		validation.Field(&f.Confirm,
			validation.Required.Error("Please confirm the new password."),
			validation.In(f.New).Error("Passwords do not match."),
		),
	)
}

// formErrors flattens a validation result into messages ordered by fields.
func formErrors(err error, fields ...string) []string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, field := range fields {
		if ferr, ok := verrs[field]; ok {
			msgs = append(msgs, ferr.Error())
		}
	}
	return msgs
}
