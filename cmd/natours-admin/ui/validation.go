package ui

import (
	"fmt"
	"net/mail"
	"strings"
)

// AdminInput is the account created by the create-admin command.
type AdminInput struct {
	Name     string
	Email    string
	Password string
}

// Complete reports whether every field is filled in.
func (in *AdminInput) Complete() bool {
	return in.Name != "" && in.Email != "" && in.Password != ""
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validEmail(s string) error {
	if err := required("email")(s); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("not a valid email address")
	}
	return nil
}

func minLength(n int) func(string) error {
	return func(s string) error {
		if len(s) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}
