// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/accounts/admin"
	"github.com/moov-io/accounts/pkg/buntdbsession"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	httpAddr  = flag.String("http.addr", ":8080", "HTTP listen address")
	adminAddr = flag.String("admin.addr", ":9090", "Admin HTTP listen address")

	// Metrics
	signupAttempts = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "signup_attempts",
		Help: "Count of signup form submissions",
	}, []string{"result"})

	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})
	authInactivations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_inactivations",
		Help: "Count of inactivated auths (i.e. user logout)",
	}, []string{"method"})

	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "http_internal_server_errors",
		Help: "Count of how many 5xx errors we send out",
	}, nil)
)

const Version = "0.2.0-dev"

func main() {
	flag.Parse()

	// Setup logging, default to stdout
	var logger log.Logger
	logger = log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting accounts server version %s", Version))

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}

	// Listen for application termination.
	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	userService, err := newSqliteUserRepository(logger, cfg.sqlitePath)
	if err != nil {
		logger.Log("sqlite", err)
		os.Exit(1)
	}
	defer userService.close()

	sessions, err := setupSessionStore(cfg)
	if err != nil {
		logger.Log("sessions", err)
		os.Exit(1)
	}
	defer sessions.Close()

	views, err := loadTemplates()
	if err != nil {
		logger.Log("templates", err)
		os.Exit(1)
	}

	authService := &auth{
		store: sessions,
		cost:  cfg.bcryptCost,
	}
	handler := setupRouter(logger, authService, userService, views, newLocalizer(cfg.language))

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:    *httpAddr,
		Handler: handler,
		TLSConfig: &tls.Config{
			InsecureSkipVerify:       false,
			PreferServerCipherSuites: true,
			MinVersion:               tls.VersionTLS12,
		},
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}
	shutdownServer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serve.Shutdown(ctx); err != nil {
			logger.Log("shutdown", err)
		}
	}

	if err := admin.Init(); err != nil {
		logger.Log("admin", err)
	}
	adminService := admin.SetupServer(*adminAddr)
	adminService.AddLivenessCheck("sqlite", userService.ping)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminService.BindAddress()))
		if err := adminService.Listen(); err != nil && err != http.ErrServerClosed {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		errs <- serve.ListenAndServe()
	}()

	if err := <-errs; err != nil {
		adminService.Shutdown()
		shutdownServer()
		logger.Log("exit", err)
	}
}

func setupSessionStore(cfg *config) (*buntdbsession.Store, error) {
	store, err := buntdbsession.New(cfg.sessionPath, cfg.sessionSecret)
	if err != nil {
		return nil, fmt.Errorf("problem opening session store %s: %v", cfg.sessionPath, err)
	}
	store.Options.Domain = cfg.domain
	store.Options.Secure = cfg.secureCookies
	return store, nil
}

// setupRouter registers every route on a new router
func setupRouter(logger log.Logger, auth authable, userService userRepository, views renderer, locales *localizer) *mux.Router {
	router := mux.NewRouter()

	addSignupRoutes(router, logger, auth, userService, views, locales)
	addLoginRoutes(router, logger, auth, userService, views, locales)
	addLogoutRoutes(router, logger, auth)
	addHomeRoutes(router, logger, auth, userService, views, locales)

	router.Methods("GET").Path("/").Handler(http.RedirectHandler(reverse(router, "tweets:home"), http.StatusFound))

	return router
}
