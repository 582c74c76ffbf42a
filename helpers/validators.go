package helpers

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrEmptyField      = errors.New("all fields are required")
	ErrInvalidImageURL = errors.New("image URL must be an absolute http(s) URL")
)

func ValidateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidImageURL
	}
	return nil
}

func ValidateRequired(fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return ErrEmptyField
		}
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
