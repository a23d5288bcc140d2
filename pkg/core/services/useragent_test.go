package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		browser string
		os      string
		device  string
	}{
		{
			name:    "chrome on windows",
			ua:      chromeUA,
			browser: "Chrome",
			os:      "Windows",
			device:  "desktop",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			browser: "Safari",
			os:      "iOS",
			device:  "mobile",
		},
		{
			name:   "googlebot",
			ua:     "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			device: "bot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseUserAgent(tt.ua)
			if tt.browser != "" {
				if assert.NotNil(t, info.Browser) {
					assert.Equal(t, tt.browser, *info.Browser)
				}
			}
			if tt.os != "" {
				if assert.NotNil(t, info.OS) {
					assert.Equal(t, tt.os, *info.OS)
				}
			}
			if assert.NotNil(t, info.Device) {
				assert.Equal(t, tt.device, *info.Device)
			}
		})
	}
}

func TestParseUserAgent_Empty(t *testing.T) {
	info := ParseUserAgent("   ")
	assert.Nil(t, info.Browser)
	assert.Nil(t, info.OS)
	assert.Nil(t, info.Device)
}
