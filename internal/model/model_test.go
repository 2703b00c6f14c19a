package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"", Range7Days, false},
		{"7d", Range7Days, false},
		{"30d", Range30Days, false},
		{"all", RangeAll, false},
		{"90d", "", true},
		{"ALL", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTimeRange(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeRange(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeRangeStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 30, 0, 0, time.FixedZone("X", 3*3600))

	if got, want := Range7Days.Start(now), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("7d start = %s, want %s", got, want)
	}
	if got, want := Range30Days.Start(now), time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("30d start = %s, want %s", got, want)
	}
	if !RangeAll.Start(now).IsZero() {
		t.Error("all range should have no lower bound")
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings{SettingEnableAnalytics: false, "custom": "x"}.WithDefaults()

	if s[SettingThemeColor] != "#00d4ff" {
		t.Errorf("theme_color = %v, want #00d4ff", s[SettingThemeColor])
	}
	if s.Bool(SettingEnableAnalytics) {
		t.Error("stored false must override the default")
	}
	if !s.Bool(SettingEnableContactForm) || !s.Bool("never_set") {
		t.Error("unset toggles default to true")
	}
	if s["custom"] != "x" {
		t.Errorf("custom = %v, want x", s["custom"])
	}
}

func TestSettingsValidate(t *testing.T) {
	var s Settings
	if err := json.Unmarshal([]byte(`{"a":true,"b":"x","c":3,"d":null,"":true}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	problems := s.Validate()
	for _, key := range []string{"c", "d", ""} {
		if _, ok := problems[key]; !ok {
			t.Errorf("expected a problem for %q", key)
		}
	}
	for _, key := range []string{"a", "b"} {
		if _, ok := problems[key]; ok {
			t.Errorf("unexpected problem for %q: %s", key, problems[key])
		}
	}
	if (Settings{"ok": true}).Validate() != nil {
		t.Error("valid settings should report nil")
	}
}

func TestKinds(t *testing.T) {
	entities := []Entity{Project{ID: "p"}, Skill{Category: "s"}, Certification{Name: "c"}, ExperienceEntry{ID: "e"}, EducationEntry{ID: "d"}}
	seen := map[Kind]bool{}
	for _, e := range entities {
		if seen[e.Kind()] {
			t.Errorf("duplicate kind %q", e.Kind())
		}
		seen[e.Kind()] = true
		if e.Key() == "" {
			t.Errorf("%s: empty key", e.Kind())
		}
	}
	if !KindSkill.NaturalKey() || !KindCertification.NaturalKey() || KindProject.NaturalKey() {
		t.Error("only skills and certifications use natural keys")
	}
}

func TestAdminCredentialHidesHash(t *testing.T) {
	b, err := json.Marshal(AdminCredential{Username: "admin", PasswordHash: "$2a$secret"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(b, &m)
	if _, ok := m["password_hash"]; ok {
		t.Error("password hash must not be serialized")
	}
	if m["username"] != "admin" {
		t.Errorf("username = %v, want admin", m["username"])
	}
}

func TestProjectNormalize(t *testing.T) {
	var p Project
	p.Normalize()
	b, _ := json.Marshal(p)
	var m map[string]interface{}
	json.Unmarshal(b, &m)
	if _, ok := m["technologies"].([]interface{}); !ok {
		t.Errorf("technologies should encode as a list, got %v", m["technologies"])
	}
}
