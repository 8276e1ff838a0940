// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// nonFieldErrors is the fieldErrors key for errors about the whole form
const nonFieldErrors = "__all__"

var (
	formDecoder   = newFormDecoder()
	formValidator = newFormValidator()

	usernamePattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_.@+-]+$`)
)

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func newFormValidator() *validator.Validate {
	v := validator.New()

	// report errors under the form field's name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// fieldErrors holds messages keyed by form field, in the order found.
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e fieldErrors) has(field string) bool {
	return len(e[field]) > 0
}

// first returns the first message for field, or an empty string.
func (e fieldErrors) first(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e fieldErrors) empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// decodeForm reads an application/x-www-form-urlencoded body into dst.
func decodeForm(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxReadBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("problem parsing form: %v", err)
	}
	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("problem decoding form: %v", err)
	}
	return nil
}

// collectFieldErrors runs the validate struct tags of form and adds one
// translated message per failing field.
func collectFieldErrors(tr translator, form interface{}, errs fieldErrors) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		errs.add(fe.Field(), tr.translate(fieldErrorMessage(fe)))
	}
	return nil
}

func fieldErrorMessage(fe validator.FieldError) message {
	switch fe.Tag() {
	case "required":
		return newMessage(msgRequired)
	case "max":
		limit, _ := strconv.Atoi(fe.Param())
		value, _ := fe.Value().(string)
		return newMessage(msgMaxLength, limit, utf8.RuneCountInString(value))
	case "email":
		return newMessage(msgInvalidEmail)
	case "username":
		return newMessage(msgInvalidUsername)
	}
	return newMessage(msgInvalid)
}

type signupForm struct {
	Username  string `schema:"username" validate:"required,max=150,username"`
	Email     string `schema:"email" validate:"required,max=254,email"`
	Password1 string `schema:"password1" validate:"required"`
	Password2 string `schema:"password2" validate:"required"`

	Errors fieldErrors `schema:"-" validate:"-"`
}

func (f *signupForm) clean() {
	f.Username = normalizeUsername(f.Username)
	f.Email = normalizeEmail(f.Email)
	// passwords are kept exactly as typed
}

// validate fills f.Errors and reports if a user can be created from f.
//
// Field checks run first, then username uniqueness. Passwords are only
// compared once password2 is present, and the password policy runs only
// when they match. Its violations are all reported on password2.
func (f *signupForm) validate(tr translator, users userRepository, policy passwordPolicy) (bool, error) {
	f.clean()
	f.Errors = make(fieldErrors)
	if err := collectFieldErrors(tr, f, f.Errors); err != nil {
		return false, err
	}

	// attributes the password can't resemble
	var attrs []userAttribute
	if !f.Errors.has("username") {
		attrs = append(attrs, userAttribute{value: f.Username, name: msgAttrUsername})
	}
	if !f.Errors.has("email") {
		attrs = append(attrs, userAttribute{value: f.Email, name: msgAttrEmail})
	}

	if !f.Errors.has("username") {
		exists, err := users.usernameExists(f.Username)
		if err != nil {
			return false, err
		}
		if exists {
			f.Errors.add("username", tr.T(msgUsernameTaken))
		}
	}

	if !f.Errors.has("password2") {
		if !f.Errors.has("password1") && f.Password1 != f.Password2 {
			f.Errors.add("password2", tr.T(msgPasswordMismatch))
		} else {
			for _, m := range policy.check(f.Password2, attrs...) {
				f.Errors.add("password2", tr.translate(m))
			}
		}
	}

	return f.Errors.empty(), nil
}

type loginForm struct {
	Username string `schema:"username" validate:"required,max=150"`
	Password string `schema:"password" validate:"required"`
	Next     string `schema:"next" validate:"-"`

	Errors fieldErrors `schema:"-" validate:"-"`
}

func (f *loginForm) validate(tr translator) (bool, error) {
	f.Username = normalizeUsername(f.Username)
	f.Errors = make(fieldErrors)
	if err := collectFieldErrors(tr, f, f.Errors); err != nil {
		return false, err
	}
	return f.Errors.empty(), nil
}
