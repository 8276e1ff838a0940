// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

type homePage struct {
	page

	User      *User
	LogoutURL string
}

func addHomeRoutes(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) {
	router.Methods("GET").Path("/tweets/home/").Name("tweets:home").HandlerFunc(homeRoute(router, logger, auth, userService, views, locales))
}

func homeRoute(router *mux.Router, logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := auth.findUserId(r)
		if err != nil {
			internalError(logger, w, err, "home")
			return
		}
		if userId == "" {
			redirectToLogin(router, w, r)
			return
		}
		u, err := userService.lookupByID(userId)
		if err == errUserNotFound {
			// session outlived its user
			if err := auth.logout(w, r); err != nil {
				logger.Log("home", err)
			}
			redirectToLogin(router, w, r)
			return
		}
		if err != nil {
			internalError(logger, w, err, "home")
			return
		}

		data := homePage{
			page:      newPage(locales.forRequest(r)),
			User:      u,
			LogoutURL: reverse(router, "accounts:logout"),
		}
		if err := views.render(w, "tweets/home.html", data); err != nil {
			internalError(logger, w, err, "home")
		}
	}
}
