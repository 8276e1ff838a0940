// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

// messageID identifies a user facing string. Every id must exist in
// every catalog below.
type messageID int

const (
	msgRequired messageID = iota
	msgInvalid
	msgMaxLength
	msgInvalidUsername
	msgUsernameTaken
	msgInvalidEmail
	msgPasswordMismatch
	msgPasswordTooSimilar
	msgPasswordTooShort
	msgPasswordNumeric
	msgInvalidLogin

	// verbose names of user attributes
	msgAttrUsername
	msgAttrEmail
)

var catalogs = map[language.Tag]map[messageID]string{
	language.English: {
		msgRequired:           "This field is required.",
		msgInvalid:            "Enter a valid value.",
		msgMaxLength:          "Ensure this value has at most %d characters (it has %d).",
		msgInvalidUsername:    "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
		msgUsernameTaken:      "A user with that username already exists.",
		msgInvalidEmail:       "Enter a valid email address.",
		msgPasswordMismatch:   "The two password fields didn’t match.",
		msgPasswordTooSimilar: "The password is too similar to the %s.",
		msgPasswordTooShort:   "This password is too short. It must contain at least %d characters.",
		msgPasswordNumeric:    "This password is entirely numeric.",
		msgInvalidLogin:       "Please enter a correct username and password. Note that both fields may be case-sensitive.",
		msgAttrUsername:       "username",
		msgAttrEmail:          "email address",
	},
	language.Japanese: {
		msgRequired:           "このフィールドは必須です。",
		msgInvalid:            "値を正しく入力してください。",
		msgMaxLength:          "この値は %d 文字以下でなければなりません( %d 文字になっています)。",
		msgInvalidUsername:    "有効なユーザー名を入力してください。この値は文字、数字および @/./+/-/_ のみが使用できます。",
		msgUsernameTaken:      "同じユーザー名が既に登録済みです。",
		msgInvalidEmail:       "有効なメールアドレスを入力してください。",
		msgPasswordMismatch:   "確認用パスワードが一致しません。",
		msgPasswordTooSimilar: "このパスワードは %s と似すぎています。",
		msgPasswordTooShort:   "このパスワードは短すぎます。最低 %d 文字以上必要です。",
		msgPasswordNumeric:    "このパスワードは数字しか使われていません。",
		msgInvalidLogin:       "正しいユーザー名とパスワードを入力してください。どちらのフィールドも大文字と小文字は区別されます。",
		msgAttrUsername:       "ユーザー名",
		msgAttrEmail:          "メールアドレス",
	},
}

// message is an untranslated message along with its format arguments.
// Arguments which are themselves a messageID are translated first.
type message struct {
	id   messageID
	args []interface{}
}

func newMessage(id messageID, args ...interface{}) message {
	return message{id: id, args: args}
}

type translator struct {
	tag language.Tag
}

func (t translator) translate(m message) string {
	format, ok := catalogs[t.tag][m.id]
	if !ok {
		format = catalogs[language.English][m.id]
	}
	if len(m.args) == 0 {
		return format
	}
	args := make([]interface{}, len(m.args))
	for i := range m.args {
		if id, ok := m.args[i].(messageID); ok {
			args[i] = t.translate(newMessage(id))
		} else {
			args[i] = m.args[i]
		}
	}
	return fmt.Sprintf(format, args...)
}

func (t translator) T(id messageID, args ...interface{}) string {
	return t.translate(newMessage(id, args...))
}

// localizer picks the translator for a request from its Accept-Language
// header, falling back to the configured language.
type localizer struct {
	fallback  language.Tag
	supported []language.Tag
	matcher   language.Matcher
}

func newLocalizer(fallback language.Tag) *localizer {
	supported := []language.Tag{language.English, language.Japanese}
	matcher := language.NewMatcher(supported)
	if _, idx, confidence := matcher.Match(fallback); confidence != language.No {
		fallback = supported[idx]
	} else {
		fallback = language.English
	}
	return &localizer{
		fallback:  fallback,
		supported: supported,
		matcher:   matcher,
	}
}

func (l *localizer) forRequest(r *http.Request) translator {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return translator{tag: l.fallback}
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return translator{tag: l.fallback}
	}
	_, idx, confidence := l.matcher.Match(tags...)
	if confidence == language.No {
		return translator{tag: l.fallback}
	}
	return translator{tag: l.supported[idx]}
}
