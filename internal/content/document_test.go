package content

import (
	"bytes"
	"strings"
	"testing"

	"github.com/folio-cms/folio/internal/model"
)

func TestSampleIsValid(t *testing.T) {
	snap, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if snap.PersonalInfo == nil || snap.PersonalInfo.Name == "" {
		t.Error("sample should carry personal info")
	}
	if len(snap.Projects) == 0 || len(snap.Skills) == 0 || len(snap.Certifications) == 0 {
		t.Errorf("sample collections: projects=%d skills=%d certifications=%d",
			len(snap.Projects), len(snap.Skills), len(snap.Certifications))
	}
	for _, p := range snap.Projects {
		if p.ID != "" {
			t.Errorf("sample project %q should not carry an id", p.Title)
		}
	}
}

func TestDecodeNormalizesLists(t *testing.T) {
	doc := `
projects:
  - title: Honeypot
    description: Low-interaction SSH honeypot
    category: Research
    duration: "2024"
    status: Planned
`
	snap, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Projects[0].Technologies == nil || snap.Projects[0].Highlights == nil {
		t.Error("omitted project lists should decode as empty lists")
	}
	if snap.Skills == nil || snap.Education == nil {
		t.Error("omitted collections should decode as empty lists")
	}
	if snap.PersonalInfo != nil {
		t.Error("personal info should stay nil when absent")
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "empty document",
			doc:  "",
			want: "empty",
		},
		{
			name: "unknown field",
			doc:  "widgets: []\n",
			want: "widgets",
		},
		{
			name: "skill level out of range",
			doc:  "skills:\n  - category: Go\n    level: 150\n",
			want: "skills[0]",
		},
		{
			name: "duplicate certification",
			doc: "certifications:\n" +
				"  - {name: CKA, issuer: CNCF, year: 2024}\n" +
				"  - {name: CKA, issuer: CNCF, year: 2025}\n",
			want: "duplicates",
		},
		{
			name: "invalid email",
			doc:  "personal_info:\n  name: Alex\n  email: not-an-email\n",
			want: "personal_info",
		},
		{
			name: "bad setting",
			doc:  "settings:\n  enable_analytics: 3\n",
			want: "settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := &model.ContentSnapshot{
		Skills:         []model.Skill{{Category: "Go", Level: 90}},
		Certifications: []model.Certification{{Name: "OSCP", Issuer: "OffSec", Year: 2023, Verified: true, Color: "#fff"}},
		Settings:       model.Settings{model.SettingThemeColor: "#123456"},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v\n%s", err, buf.String())
	}
	if len(out.Skills) != 1 || out.Skills[0] != in.Skills[0] {
		t.Errorf("skills: got %+v", out.Skills)
	}
	if len(out.Certifications) != 1 || out.Certifications[0] != in.Certifications[0] {
		t.Errorf("certifications: got %+v", out.Certifications)
	}
	if out.Settings[model.SettingThemeColor] != "#123456" {
		t.Errorf("theme_color: got %v", out.Settings[model.SettingThemeColor])
	}
}
