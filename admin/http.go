// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupServer returns a Server bound to addr (i.e. ":9090")
func SetupServer(addr string) *Server {
	timeout, _ := time.ParseDuration("45s")
	s := &Server{
		livenessChecks: make(map[string]func() error),
	}
	s.svc = &http.Server{
		Addr:         addr,
		Handler:      s.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  timeout,
	}
	return s
}

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, healthcheck)
type Server struct {
	svc *http.Server

	mu             sync.RWMutex
	livenessChecks map[string]func() error
}

func (s *Server) BindAddress() string {
	return s.svc.Addr
}

// AddLivenessCheck registers f to be called on each GET /live request.
// A non-nil error from any check fails the whole request.
func (s *Server) AddLivenessCheck(name string, f func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.livenessChecks[name] = f
}

// Listen brings up the admin HTTP service. This call blocks.
func (s *Server) Listen() error {
	if s == nil || s.svc == nil {
		return nil
	}
	return s.svc.ListenAndServe()
}

// Shutdown unbinds the HTTP server.
func (s *Server) Shutdown() {
	if s == nil || s.svc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.svc.Shutdown(ctx)
}

func (s *Server) handler() http.Handler {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	r.Methods("GET").Path("/live").HandlerFunc(s.liveHandler)

	// add all pprof handlers we've configured
	r.HandleFunc("/debug/pprof/", pprof.Index)
	for k, add := range pprofHandlers {
		if pprofProfileEnabled(k, add) {
			r.Handle(fmt.Sprintf("/debug/pprof/%s", k), pprof.Handler(k))
		}
	}

	return r
}

// liveHandler runs every liveness check and returns a JSON object of
// check name to error (or "good"). Any failure returns a 400.
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.livenessChecks))
	for name := range s.livenessChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string)
	failed := false
	for _, name := range names {
		if err := s.livenessChecks[name](); err != nil {
			results[name] = err.Error()
			failed = true
		} else {
			results[name] = "good"
		}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if failed {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(results)
}
