// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// passwordPolicy is the fixed set of rules a new password must pass.
//
// Rules are checked in this order and every violation is reported:
//  - not too similar to any of the user's attributes
//  - at least minLength characters
//  - not entirely numeric
type passwordPolicy struct {
	minLength     int
	maxSimilarity float64
}

var defaultPasswordPolicy = passwordPolicy{
	minLength:     8,
	maxSimilarity: 0.7,
}

// userAttribute is a value the password is compared against, along with
// the name shown to users when they're too similar.
type userAttribute struct {
	value string
	name  messageID
}

var nonWordRuns = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

func (p passwordPolicy) check(password string, attrs ...userAttribute) []message {
	var out []message
	if attr, ok := p.tooSimilar(password, attrs); ok {
		out = append(out, newMessage(msgPasswordTooSimilar, attr.name))
	}
	if utf8.RuneCountInString(password) < p.minLength {
		out = append(out, newMessage(msgPasswordTooShort, p.minLength))
	}
	if entirelyNumeric(password) {
		out = append(out, newMessage(msgPasswordNumeric))
	}
	return out
}

func (p passwordPolicy) tooSimilar(password string, attrs []userAttribute) (userAttribute, bool) {
	password = strings.ToLower(password)
	for _, attr := range attrs {
		if attr.value == "" {
			continue
		}
		value := strings.ToLower(attr.value)
		parts := append(nonWordRuns.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || p.exceedsLengthRatio(password, part) {
				continue
			}
			if quickRatio(password, part) >= p.maxSimilarity {
				return attr, true
			}
		}
	}
	return userAttribute{}, false
}

// exceedsLengthRatio reports if part is so much shorter than the password
// that comparing them can't reach maxSimilarity.
func (p passwordPolicy) exceedsLengthRatio(password, part string) bool {
	pwdLen := utf8.RuneCountInString(password)
	partLen := utf8.RuneCountInString(part)
	bound := p.maxSimilarity / 2 * float64(pwdLen)
	return pwdLen >= 10*partLen && float64(partLen) < bound
}

func quickRatio(a, b string) float64 {
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.QuickRatio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func entirelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
