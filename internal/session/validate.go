package session

import (
	"errors"
	"regexp"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validation messages are shown to the user as is.
var (
	ErrMissingFields    = errors.New("Please fill in all fields")
	ErrPasswordMismatch = errors.New("Passwords don't match")
	ErrBadEmail         = errors.New("Please enter a valid email address")
)

type AuthForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

func ValidateLogin(c AuthForm) error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingFields
	}
	return nil
}

func ValidateSignup(c AuthForm) error {
	if c.Username == "" || c.Email == "" || c.Password == "" || c.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if c.Password != c.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !emailRe.MatchString(c.Email) {
		return ErrBadEmail
	}
	return nil
}
