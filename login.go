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

type loginPage struct {
	page

	Action    string
	SignupURL string
	Form      *loginForm
}

func addLoginRoutes(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) {
	router.Methods("GET", "POST").Path("/accounts/login/").Name("accounts:login").HandlerFunc(loginRoute(router, logger, auth, userService, views, locales))
}

func loginRoute(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := locales.forRequest(r)
		form := &loginForm{
			Next: r.URL.Query().Get("next"),
		}
		render := func() {
			data := loginPage{
				page:      newPage(tr),
				Action:    reverse(router, "accounts:login"),
				SignupURL: reverse(router, "accounts:signup"),
				Form:      form,
			}
			if err := views.render(w, "accounts/login.html", data); err != nil {
				internalError(logger, w, err, "login")
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
		valid, err := form.validate(tr)
		if err != nil {
			internalError(logger, w, err, "login")
			return
		}
		if !valid {
			render()
			return
		}

		// find user by username
		u, err := userService.lookupByUsername(form.Username)
		if err != nil && err != errUserNotFound {
			internalError(logger, w, err, "login")
			return
		}
		if u == nil {
			// Mark this (and password check) as failure only because
			// the user is involved at this point. Otherwise it's their
			// browser's problem (i.e. empty fields).
			authFailures.With("method", "web").Add(1)
			form.Errors.add(nonFieldErrors, tr.T(msgInvalidLogin))
			render()
			return
		}

		if err := auth.checkPassword(u.Password, form.Password); err != nil {
			authFailures.With("method", "web").Add(1)
			logger.Log("login", fmt.Sprintf("userId=%s failed: %v", u.ID, err))
			form.Errors.add(nonFieldErrors, tr.T(msgInvalidLogin))
			render()
			return
		}

		// success route, let's finish!
		if err := auth.login(w, r, u.ID); err != nil {
			internalError(logger, w, err, "login")
			return
		}
		if err := userService.touchLastLogin(u.ID, time.Now()); err != nil {
			logger.Log("login", fmt.Sprintf("userId=%s last_login: %v", u.ID, err))
		}
		authSuccesses.With("method", "web").Add(1)

		http.Redirect(w, r, safeNext(form.Next, reverse(router, "tweets:home")), http.StatusFound)
	}
}
