// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
)

func TestConfig__defaults(t *testing.T) {
	for _, k := range []string{"SQLITE_DB_PATH", "SESSION_DB_PATH", "SESSION_SECRET", "DOMAIN", "COOKIE_SECURE", "LANGUAGE_CODE", "BCRYPT_COST"} {
		t.Setenv(k, "")
	}

	cfg, err := loadConfig(log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "accounts.db", cfg.sqlitePath)
	require.Equal(t, "sessions.db", cfg.sessionPath)
	require.Len(t, cfg.sessionSecret, 32)
	require.Equal(t, "", cfg.domain)
	require.False(t, cfg.secureCookies)
	require.Equal(t, language.English, cfg.language)
	require.Equal(t, bcrypt.DefaultCost, cfg.bcryptCost)
}

func TestConfig__env(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "/var/lib/accounts/accounts.db")
	t.Setenv("SESSION_DB_PATH", ":memory:")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("DOMAIN", "example.com")
	t.Setenv("COOKIE_SECURE", "yes")
	t.Setenv("LANGUAGE_CODE", "ja")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := loadConfig(log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "/var/lib/accounts/accounts.db", cfg.sqlitePath)
	require.Equal(t, ":memory:", cfg.sessionPath)
	require.Equal(t, []byte("secret"), cfg.sessionSecret)
	require.Equal(t, "example.com", cfg.domain)
	require.True(t, cfg.secureCookies)
	require.Equal(t, language.Japanese, cfg.language)
	require.Equal(t, 12, cfg.bcryptCost)
}

func TestConfig__invalid(t *testing.T) {
	t.Setenv("COOKIE_SECURE", "maybe")
	_, err := loadConfig(log.NewNopLogger())
	require.Error(t, err)

	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("BCRYPT_COST", "99")
	_, err = loadConfig(log.NewNopLogger())
	require.Error(t, err)

	t.Setenv("BCRYPT_COST", "")
	t.Setenv("LANGUAGE_CODE", "not a language!")
	_, err = loadConfig(log.NewNopLogger())
	require.Error(t, err)
}

func TestConfig__sqlitePath(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "../../etc/accounts.db")
	require.Equal(t, "accounts.db", getSqlitePath())
}
