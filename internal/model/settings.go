package model

import (
	"fmt"
	"sort"
)

// Settings is the open set of site-wide toggles. Values are either booleans
// or strings; keys not present fall back to DefaultSettings.
type Settings map[string]interface{}

// Well-known setting keys.
const (
	SettingThemeColor        = "theme_color"
	SettingEnableAnalytics   = "enable_analytics"
	SettingEnableContactForm = "enable_contact_form"
	SettingEnableThreatMap   = "enable_threat_map"
)

const maxSettingKeyLen = 64

// DefaultSettings returns the documented defaults applied beneath any stored
// values.
func DefaultSettings() Settings {
	return Settings{
		SettingThemeColor:        "#00d4ff",
		SettingEnableAnalytics:   true,
		SettingEnableContactForm: true,
		SettingEnableThreatMap:   true,
	}
}

// WithDefaults returns a copy of s layered over DefaultSettings.
func (s Settings) WithDefaults() Settings {
	out := DefaultSettings()
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Bool reports the boolean value of key. Unset or non-boolean values are
// treated as true, matching the documented default for toggles.
func (s Settings) Bool(key string) bool {
	v, ok := s[key]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	if !ok {
		return true
	}
	return b
}

// Validate checks that every key is a short non-empty name and every value
// is a bool or a string. It returns a map of offending keys to reasons.
func (s Settings) Validate() map[string]string {
	problems := map[string]string{}
	for k, v := range s {
		switch {
		case k == "":
			problems[k] = "setting name must not be empty"
			continue
		case len(k) > maxSettingKeyLen:
			problems[k] = fmt.Sprintf("setting name must be at most %d characters", maxSettingKeyLen)
			continue
		}
		switch v.(type) {
		case bool, string:
		default:
			problems[k] = fmt.Sprintf("value must be a boolean or a string, got %T", v)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// Keys returns the setting names in sorted order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
