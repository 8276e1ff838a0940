// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	views, err := loadTemplates()
	require.NoError(t, err)
	require.Len(t, views.pages, len(pageNames))

	w := httptest.NewRecorder()
	err = views.render(w, "accounts/signup.html", signupPage{
		page:     page{Lang: "en"},
		Action:   "/accounts/signup/",
		LoginURL: "/accounts/login/",
		Form: &signupForm{
			Username: "<script>",
			Errors:   fieldErrors{"email": {"Enter a valid email address."}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 200, w.Code)

	body := w.Body.String()
	require.Contains(t, body, "<title>Sign up</title>")
	require.Contains(t, body, "Enter a valid email address.")
	require.Contains(t, body, "&lt;script&gt;")
	require.NotContains(t, body, `value="<script>"`)
}

func TestTemplates__unknown(t *testing.T) {
	views, err := loadTemplates()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.Error(t, views.render(w, "accounts/missing.html", nil))
	require.Empty(t, w.Body.String())
}
