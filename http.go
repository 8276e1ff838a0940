// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with http.MaxBytesReader
	maxReadBytes = 1 * 1024 * 1024
)

// encodeError JSON encodes the supplied error
//
// The HTTP status of "400 Bad Request" is written to the
// response.
func encodeError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func internalError(logger log.Logger, w http.ResponseWriter, err error, component string) {
	internalServerErrors.Add(1)
	logger.Log(component, err)
	w.WriteHeader(http.StatusInternalServerError)
}

// reverse returns the path of a named route. Routes without variables
// are expected, so a failure here is a programming error.
func reverse(router *mux.Router, name string) string {
	route := router.Get(name)
	if route == nil {
		panic("no route named " + name)
	}
	u, err := route.URL()
	if err != nil {
		panic(err.Error())
	}
	return u.Path
}

// redirectToLogin sends anonymous users to the login page, remembering
// where they were headed.
func redirectToLogin(router *mux.Router, w http.ResponseWriter, r *http.Request) {
	u := url.URL{
		Path:     reverse(router, "accounts:login"),
		RawQuery: url.Values{"next": []string{r.URL.RequestURI()}}.Encode(),
	}
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// safeNext returns next if it's a path on this host, otherwise fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
