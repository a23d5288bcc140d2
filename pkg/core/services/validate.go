package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

const (
	MinSlugLength = 5
	MaxSlugLength = 12
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{5,12}$`)

// IsValidSlug reports whether s satisfies the public slug format.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// ValidateSlug returns domain.ErrInvalidSlug for malformed slugs.
func ValidateSlug(s string) error {
	if !IsValidSlug(s) {
		return domain.ErrInvalidSlug
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return domain.ErrInvalidURL
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return domain.ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return domain.ErrInvalidURL
	}
	if u.Host == "" || u.Hostname() == "" {
		return domain.ErrInvalidURL
	}
	return nil
}
