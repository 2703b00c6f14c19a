package service

import (
	"testing"

	"github.com/folio-cms/folio/internal/model"
)

func TestParseClient(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		device  model.DeviceType
		browser string
		os      string
	}{
		{
			name:    "desktop chrome on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			device:  model.DeviceDesktop,
			browser: "Chrome",
			os:      "Windows",
		},
		{
			name:    "edge",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			device:  model.DeviceDesktop,
			browser: "Edge",
			os:      "Windows",
		},
		{
			name:    "iphone safari",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  model.DeviceMobile,
			browser: "Safari",
			os:      "iOS",
		},
		{
			name:    "ipad",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  model.DeviceTablet,
			browser: "Safari",
			os:      "iOS",
		},
		{
			name:    "android firefox",
			ua:      "Mozilla/5.0 (Android 14; Mobile; rv:121.0) Gecko/121.0 Firefox/121.0",
			device:  model.DeviceMobile,
			browser: "Firefox",
			os:      "Android",
		},
		{
			name:    "linux opera",
			ua:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 OPR/105.0",
			device:  model.DeviceDesktop,
			browser: "Opera",
			os:      "Linux",
		},
		{
			name:    "empty",
			ua:      "",
			device:  model.DeviceDesktop,
			browser: "Other",
			os:      "Other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseClient(tt.ua, "")
			if got.Device != tt.device {
				t.Errorf("device: got %q, want %q", got.Device, tt.device)
			}
			if got.Browser != tt.browser {
				t.Errorf("browser: got %q, want %q", got.Browser, tt.browser)
			}
			if got.OS != tt.os {
				t.Errorf("os: got %q, want %q", got.OS, tt.os)
			}
		})
	}
}

func TestLocationFromIP(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1":   "Local Network",
		"192.168.1.4": "Local Network",
		"10.0.0.8":    "Local Network",
		"::1":         "Local Network",
		"8.8.8.8":     "Unknown",
		"not-an-ip":   "Unknown",
	}
	for ip, want := range tests {
		if got := locationFromIP(ip); got != want {
			t.Errorf("%s: got %q, want %q", ip, got, want)
		}
	}
}
