// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates
var templateFS embed.FS

// pageNames are the templates (under templates/) rendered inside base.html
var pageNames = []string{
	"accounts/signup.html",
	"accounts/login.html",
	"tweets/home.html",
}

type renderer interface {
	// render writes the named page with data and a 200 status
	render(w http.ResponseWriter, name string, data interface{}) error
}

type templates struct {
	pages map[string]*template.Template
}

func loadTemplates() (*templates, error) {
	out := &templates{
		pages: make(map[string]*template.Template),
	}
	for _, name := range pageNames {
		t, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("problem parsing %s: %v", name, err)
		}
		out.pages[name] = t
	}
	return out, nil
}

func (t *templates) render(w http.ResponseWriter, name string, data interface{}) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	// render fully before writing so errors can still become a 500
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return fmt.Errorf("problem rendering %s: %v", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

// page holds what base.html needs on every page
type page struct {
	Lang string
}

func newPage(tr translator) page {
	return page{Lang: tr.tag.String()}
}
