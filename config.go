// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
)

// config is read from the environment, which can be seeded from a .env
// file in the working directory.
type config struct {
	// SQLITE_DB_PATH, default accounts.db
	sqlitePath string

	// SESSION_DB_PATH, default sessions.db (":memory:" is allowed)
	sessionPath string

	// SESSION_SECRET signs session cookies. A random key is used when
	// empty, which logs everyone out on restart.
	sessionSecret []byte

	// DOMAIN is the domain to publish cookies under.
	// If empty cookies are host-only. The path is always set to /.
	domain string

	// COOKIE_SECURE=yes marks cookies Secure
	secureCookies bool

	// LANGUAGE_CODE is used for requests without a usable Accept-Language
	language language.Tag

	// BCRYPT_COST, default bcrypt.DefaultCost
	bcryptCost int
}

func loadConfig(logger log.Logger) (*config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("problem reading .env: %v", err)
	}

	cfg := &config{
		sqlitePath:  getSqlitePath(),
		sessionPath: envOr("SESSION_DB_PATH", "sessions.db"),
		domain:      os.Getenv("DOMAIN"),
		bcryptCost:  bcrypt.DefaultCost,
	}

	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.sessionSecret = []byte(secret)
	} else {
		logger.Log("config", "SESSION_SECRET is empty, generating a random key")
		cfg.sessionSecret = securecookie.GenerateRandomKey(32)
	}

	switch strings.ToLower(os.Getenv("COOKIE_SECURE")) {
	case "", "no":
	case "yes":
		cfg.secureCookies = true
	default:
		return nil, fmt.Errorf("COOKIE_SECURE must be yes or no, got %q", os.Getenv("COOKIE_SECURE"))
	}

	tag, err := language.Parse(envOr("LANGUAGE_CODE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid LANGUAGE_CODE: %v", err)
	}
	cfg.language = tag

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %q", bcrypt.MinCost, bcrypt.MaxCost, v)
		}
		cfg.bcryptCost = n
	}

	return cfg, nil
}

func getSqlitePath() string {
	path := os.Getenv("SQLITE_DB_PATH")
	if path == "" || strings.Contains(path, "..") {
		// set default if empty or trying to escape
		// don't filepath.ABS to avoid full-fs reads
		path = "accounts.db"
	}
	return path
}

func envOr(key, zero string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return zero
}
