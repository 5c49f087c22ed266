// Package auth covers credential hashing and the field validation rules
// shared by the signup and lead-capture forms.
package auth

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6

	minFullNameLength = 2
	maxFullNameLength = 100

	// Age bounds from the purchase form. Other entry points in the product
	// historically used looser bounds (16-45, 16-60); the purchase path is
	// the one that creates leads, so its bound is canonical here.
	MinAge = 16
	MaxAge = 65
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidFullName  = errors.New("full name must be 2-100 characters")
	ErrInvalidAge       = errors.New("age must be between 16 and 65")
)

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a stored bcrypt hash.
func CheckPassword(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// ValidatePassword enforces the minimum length rule.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateEmail checks RFC 5322 address syntax.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateFullName enforces the 2-100 character bound.
func ValidateFullName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minFullNameLength || n > maxFullNameLength {
		return ErrInvalidFullName
	}
	return nil
}

// ValidateAge enforces the canonical lead age bound.
func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return ErrInvalidAge
	}
	return nil
}
