// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "sessionid"

	// sessionUserKey holds the logged in user's ID
	sessionUserKey = "_auth_user_id"
)

type authable interface {
	// hash returns the stored form of a new password
	hash(pass string) (string, error)

	// checkPassword compares the provided pass against a stored hash.
	// a non-nil error is returned if the passwords don't match.
	checkPassword(hash string, pass string) error

	// login attaches userId to the request's session under a fresh
	// session id and writes the session cookie.
	login(w http.ResponseWriter, r *http.Request, userId string) error

	// logout removes the request's session (require them to login again)
	logout(w http.ResponseWriter, r *http.Request) error

	// findUserId returns the userId attached to the request's session.
	// An empty string is returned for anonymous requests.
	findUserId(r *http.Request) (string, error)
}

// sessionStore is a sessions.Store which can also rotate session ids,
// see buntdbsession.Store
type sessionStore interface {
	sessions.Store

	Cycle(session *sessions.Session) error
}

type auth struct {
	store sessionStore
	cost  int
}

// prehash digests pass so bcrypt's 72 byte input limit never applies.
// Both hash and checkPassword must go through it.
func prehash(pass string) []byte {
	sum := sha256.Sum256([]byte(pass))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func (a *auth) hash(pass string) (string, error) {
	bs, err := bcrypt.GenerateFromPassword(prehash(pass), a.cost)
	if err != nil {
		return "", fmt.Errorf("problem hashing password: %v", err)
	}
	return string(bs), nil
}

func (a *auth) checkPassword(hash string, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(pass))
}

func (a *auth) login(w http.ResponseWriter, r *http.Request, userId string) error {
	// An undecodable cookie still gives us a usable (new) session.
	session, _ := a.store.Get(r, sessionName)

	if current, _ := session.Values[sessionUserKey].(string); current != "" && current != userId {
		// someone else was logged in with this session, start over
		session.Values = make(map[interface{}]interface{})
	}
	if err := a.store.Cycle(session); err != nil {
		return err
	}
	session.Values[sessionUserKey] = userId
	return session.Save(r, w)
}

func (a *auth) logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, sessionName)
	if session.IsNew {
		return nil
	}
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (a *auth) findUserId(r *http.Request) (string, error) {
	session, err := a.store.Get(r, sessionName)
	if err != nil {
		return "", nil // treat bad cookies as anonymous
	}
	userId, _ := session.Values[sessionUserKey].(string)
	return userId, nil
}
