// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package admin serves operator endpoints (metrics, liveness checks and
// pprof) on a listener separate from user traffic.
package admin

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Init configures the runtime for the profiles enabled below. Block and
// mutex sampling are off unless PPROF_BLOCK or PPROF_MUTEX is "yes".
func Init() error {
	if pprofProfileEnabled("block", pprofHandlers["block"]) {
		runtime.SetBlockProfileRate(1)
	}
	if pprofProfileEnabled("mutex", pprofHandlers["mutex"]) {
		runtime.SetMutexProfileFraction(1)
	}
	return nil
}

// pprofHandlers lists the pprof profiles served under /debug/pprof/ and
// whether each is on by default. Dumps can contain user data (password
// hashes, emails, session ids) so they're only served on the admin port.
//
// Override any of them with PPROF_$NAME=yes|no
var pprofHandlers = map[string]bool{
	"allocs":       true,
	"block":        false,
	"cmdline":      true,
	"goroutine":    true,
	"heap":         true,
	"mutex":        false,
	"profile":      true,
	"threadcreate": false,
	"trace":        false,
}

// pprofProfileEnabled reads PPROF_$name (name upper-cased).
// "yes" returns true, "no" returns false, anything else returns zero.
func pprofProfileEnabled(name string, zero bool) bool {
	v := os.Getenv(fmt.Sprintf("PPROF_%s", strings.ToUpper(name)))
	switch strings.ToLower(v) {
	case "yes":
		return true
	case "no":
		return false
	}
	return zero
}
