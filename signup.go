// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

type signupPage struct {
	page

	Action   string
	LoginURL string
	Form     *signupForm
}

func addSignupRoutes(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) {
	router.Methods("GET", "POST").Path("/accounts/signup/").Name("accounts:signup").HandlerFunc(signupRoute(router, logger, auth, userService, views, locales))
}

func signupRoute(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := locales.forRequest(r)
		form := &signupForm{}
		render := func() {
			data := signupPage{
				page:     newPage(tr),
				Action:   reverse(router, "accounts:signup"),
				LoginURL: reverse(router, "accounts:login"),
				Form:     form,
			}
			if err := views.render(w, "accounts/signup.html", data); err != nil {
				internalError(logger, w, err, "signup")
			}
		}

		if r.Method == "GET" {
			render()
			return
		}

		if err := decodeForm(w, r, form); err != nil {
			encodeError(w, err)
			return
		}
		valid, err := form.validate(tr, userService, defaultPasswordPolicy)
		if err != nil {
			internalError(logger, w, err, "signup")
			return
		}
		if !valid {
			signupAttempts.With("result", "invalid").Add(1)
			render()
			return
		}

		hash, err := auth.hash(form.Password2)
		if err != nil {
			internalError(logger, w, err, "signup")
			return
		}
		u := &User{
			ID:         generateID(),
			Username:   form.Username,
			Email:      form.Email,
			Password:   hash,
			DateJoined: time.Now().UTC(),
		}
		if err := userService.create(u); err != nil {
			if err == errUsernameTaken {
				// lost a race with another signup for the same username
				signupAttempts.With("result", "invalid").Add(1)
				form.Errors.add("username", tr.T(msgUsernameTaken))
				render()
				return
			}
			internalError(logger, w, err, "signup")
			return
		}
		signupAttempts.With("result", "created").Add(1)
		logger.Log("signup", fmt.Sprintf("created userId=%s", u.ID))

		if err := auth.login(w, r, u.ID); err != nil {
			internalError(logger, w, err, "signup")
			return
		}
		authSuccesses.With("method", "signup").Add(1)

		http.Redirect(w, r, reverse(router, "tweets:home"), http.StatusFound)
	}
}
