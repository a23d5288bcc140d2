package services

import (
	"strings"

	"github.com/mileusna/useragent"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

// ParseUserAgent extracts browser, device class and OS from a raw
// User-Agent header. Anything it cannot make sense of comes back nil.
func ParseUserAgent(raw string) (info domain.ClientInfo) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ClientInfo{}
	}
	defer func() {
		if recover() != nil {
			info = domain.ClientInfo{}
		}
	}()

	ua := useragent.Parse(raw)
	info.Browser = optional(ua.Name)
	info.OS = optional(ua.OS)
	info.Device = deviceClass(ua)
	return info
}

func deviceClass(ua useragent.UserAgent) *string {
	switch {
	case ua.Bot:
		return optional("bot")
	case ua.Tablet:
		return optional("tablet")
	case ua.Mobile:
		return optional("mobile")
	case ua.Desktop:
		return optional("desktop")
	}
	return optional(ua.Device)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
