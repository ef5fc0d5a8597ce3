package service

import (
	"html"
	"net/mail"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bytes; bcrypt ignores anything longer
	maxNameLen     = 100
	maxEmailLen    = 255
)

func checkEmail(fields map[string]string, email string) {
	if email == "" {
		fields["email"] = "is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLen {
		fields["email"] = "must be a valid email address"
	}
}

func checkPassword(fields map[string]string, password string) {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLen:
		fields["password"] = "must be at least 8 characters"
	case len(password) > maxPasswordLen:
		fields["password"] = "must be at most 72 bytes"
	}
}

func checkName(fields map[string]string, key, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		fields[key] = "is required"
	case n > maxNameLen:
		fields[key] = "must be at most 100 characters"
	}
}

// plainPassword undoes the HTML escaping applied to request bodies, so length
// checks and hashing see the characters the user typed.
func plainPassword(p string) string {
	return html.UnescapeString(p)
}
