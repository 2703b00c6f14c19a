package service

import (
	"net/netip"
	"strings"

	"github.com/folio-cms/folio/internal/model"
)

// ClientInfo is what the analytics recorder derives from a request's
// User-Agent header and remote address.
type ClientInfo struct {
	Device   model.DeviceType
	Browser  string
	OS       string
	Location string
}

// ParseClient classifies a user agent and IP address. The rules are simple
// substring checks; unknown agents fall back to desktop and "Other".
func ParseClient(userAgent, ip string) ClientInfo {
	ua := strings.ToLower(userAgent)
	return ClientInfo{
		Device:   deviceFromUA(ua),
		Browser:  browserFromUA(ua),
		OS:       osFromUA(ua),
		Location: locationFromIP(ip),
	}
}

func deviceFromUA(ua string) model.DeviceType {
	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return model.DeviceTablet
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return model.DeviceMobile
	}
	return model.DeviceDesktop
}

func browserFromUA(ua string) string {
	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "opr"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	}
	return "Other"
}

func osFromUA(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	}
	return "Other"
}

// locationFromIP only distinguishes private and loopback addresses. There
// is no geo lookup.
func locationFromIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "Unknown"
	}
	if addr.IsLoopback() || addr.IsPrivate() {
		return "Local Network"
	}
	return "Unknown"
}
