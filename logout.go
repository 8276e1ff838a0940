// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

func addLogoutRoutes(router *mux.Router, logger log.Logger, auth authable) {
	router.Methods("POST").Path("/accounts/logout/").Name("accounts:logout").HandlerFunc(logoutRoute(router, logger, auth))
}

func logoutRoute(router *mux.Router, logger log.Logger, auth authable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := auth.findUserId(r)
		if err != nil {
			internalError(logger, w, err, "logout")
			return
		}
		if err := auth.logout(w, r); err != nil {
			internalError(logger, w, err, "logout")
			return
		}
		if userId != "" {
			authInactivations.With("method", "web").Add(1)
		}
		http.Redirect(w, r, reverse(router, "accounts:login"), http.StatusFound)
	}
}
