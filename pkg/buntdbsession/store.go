// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package buntdbsession implements sessions.Store from github.com/gorilla/sessions
// using BuntDB (https://github.com/tidwall/buntdb).
//
// Only a signed session id is sent to clients. Session values are encoded
// with the same codecs and kept in buntdb, expiring along with the cookie.
package buntdbsession

import (
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/tidwall/buntdb"
)

var (
	// DefaultMaxAge is the cookie and record lifetime used by New, in seconds.
	DefaultMaxAge = 86400 * 14
)

// New opens the buntdb file at path (":memory:" is allowed) and returns a Store
// using keyPairs as securecookie hash and block keys.
func New(path string, keyPairs ...[]byte) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   DefaultMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		db: db,
	}
	s.MaxAge(s.Options.MaxAge)
	return s, nil
}

type Store struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options // default configuration

	db *buntdb.DB
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MaxAge sets the maximum age for the store and the underlying cookie
// implementation. Individual sessions can be deleted by setting
// Options.MaxAge = -1 for that session.
func (s *Store) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// Get returns a session for the given name after adding it to the registry.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns a session for the given name without adding it to the registry.
//
// A session whose cookie can't be decoded, or whose record expired, comes
// back as a new session along with the decode error (if any).
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil // no cookie
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		return session, err
	}
	if err := s.load(session); err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			session.ID = ""
			return session, nil
		}
		return session, err
	}
	session.IsNew = false
	return session, nil
}

// Save writes the session into buntdb and sets its cookie on w.
//
// A session with Options.MaxAge <= 0 is erased and its cookie expired.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge <= 0 {
		if err := s.erase(session); err != nil {
			return err
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = newID()
	}
	if err := s.save(session); err != nil {
		return err
	}
	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Cycle drops the stored record of session and clears its id so the next
// Save issues a new one. Values are kept.
func (s *Store) Cycle(session *sessions.Session) error {
	if err := s.erase(session); err != nil {
		return err
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

func newID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}

func key(session *sessions.Session) string {
	return fmt.Sprintf("session:%s:%s", session.Name(), session.ID)
}

func (s *Store) save(session *sessions.Session) error {
	encoded, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		opts := &buntdb.SetOptions{
			Expires: true,
			TTL:     time.Duration(session.Options.MaxAge) * time.Second,
		}
		_, _, err := tx.Set(key(session), encoded, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("problem saving session: %v", err)
	}
	return nil
}

func (s *Store) load(session *sessions.Session) error {
	var encoded string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(session))
		if err != nil {
			return err
		}
		encoded = v
		return nil
	})
	if err != nil {
		return err
	}
	return securecookie.DecodeMulti(session.Name(), encoded, &session.Values, s.Codecs...)
}

func (s *Store) erase(session *sessions.Session) error {
	if session.ID == "" {
		return nil
	}
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key(session))
		return err
	})
	if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		return fmt.Errorf("problem erasing session: %v", err)
	}
	return nil
}
