// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// purpose
// - handle signup route POST /accounts/signup/
// - usernames are unique ignoring case, stored NFKC normalized
// - emails keep their local part, the domain is lower-cased
// - password (bcrypt), hash includes the salt

// sqlite:
//  - users (user_id, username, email, password, date_joined, last_login)

type User struct {
	ID         string
	Username   string
	Email      string
	Password   string `json:"-"` // bcrypt hash
	DateJoined time.Time
	LastLogin  *time.Time
}

var (
	errUserNotFound  = errors.New("user not found")
	errUsernameTaken = errors.New("username already taken")
)

// normalizeUsername trims whitespace and applies NFKC so visually
// identical usernames compare equal.
func normalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}

// normalizeEmail lower-cases the domain part of an email address.
//
// The local part is left alone since mail servers are allowed to treat
// it case sensitively. Addresses without an '@' are only trimmed.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	idx := strings.LastIndex(email, "@")
	if idx < 0 {
		return email
	}
	return email[:idx] + "@" + strings.ToLower(email[idx+1:])
}

// generateID creates a new ID for our accounts.
// Do no assume anything about these ID's other than
// they are strings.
func generateID() string {
	return uuid.New().String()
}

type userRepository interface {
	lookupByID(id string) (*User, error)
	lookupByUsername(username string) (*User, error)

	// usernameExists matches ignoring (ASCII) case, lookupByUsername
	// matches exactly
	usernameExists(username string) (bool, error)

	// create inserts a new user. errUsernameTaken is returned if
	// another user already has u.Username, in any case.
	create(u *User) error

	touchLastLogin(id string, when time.Time) error
	count() (int, error)

	close() error
}
