package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func generate(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := Generate("http://localhost:8080", "1.2.3")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return doc
}

func TestGenerate_Info(t *testing.T) {
	doc := generate(t)

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.1.0")
	}
	if doc.Info == nil || doc.Info.Title != "Folio API" {
		t.Fatalf("unexpected info: %+v", doc.Info)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q", doc.Info.Version)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("Servers not set correctly")
	}
}

func TestGenerate_NoServerWithoutBaseURL(t *testing.T) {
	doc, err := Generate("", "dev")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Servers) != 0 {
		t.Errorf("expected no servers, got %d", len(doc.Servers))
	}
}

func TestGenerate_Paths(t *testing.T) {
	doc := generate(t)

	tests := []struct {
		path    string
		method  string
		secured bool
	}{
		{"/api/auth/login", http.MethodPost, false},
		{"/api/auth/verify", http.MethodGet, true},
		{"/api/auth/change-password", http.MethodPost, true},
		{"/api/auth/logout", http.MethodPost, true},
		{"/api/content/all", http.MethodGet, false},
		{"/api/content/personal-info", http.MethodGet, false},
		{"/api/content/personal-info", http.MethodPut, true},
		{"/api/content/settings", http.MethodGet, false},
		{"/api/content/settings", http.MethodPut, true},
		{"/api/content/projects", http.MethodGet, false},
		{"/api/content/projects", http.MethodPost, true},
		{"/api/content/projects/{id}", http.MethodPut, true},
		{"/api/content/projects/{id}", http.MethodDelete, true},
		{"/api/content/skills/{category}", http.MethodPut, true},
		{"/api/content/certifications/{name}", http.MethodDelete, true},
		{"/api/content/experience/{id}", http.MethodPut, true},
		{"/api/content/education", http.MethodPost, true},
		{"/api/contact", http.MethodPost, false},
		{"/api/contact/captcha", http.MethodGet, false},
		{"/api/contact/list", http.MethodGet, true},
		{"/api/contact/{id}/read", http.MethodPatch, true},
		{"/api/analytics/track", http.MethodPost, false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			item := doc.Paths.Value(tt.path)
			if item == nil {
				t.Fatalf("path %s missing", tt.path)
			}
			op := item.GetOperation(tt.method)
			if op == nil {
				t.Fatalf("%s %s missing", tt.method, tt.path)
			}
			hasSecurity := op.Security != nil && len(*op.Security) > 0
			if hasSecurity != tt.secured {
				t.Errorf("secured = %v, want %v", hasSecurity, tt.secured)
			}
			if op.Responses.Value("500") == nil {
				t.Error("expected a 500 response")
			}
		})
	}
}

func TestGenerate_OperationIDsUnique(t *testing.T) {
	doc := generate(t)
	seen := map[string]string{}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op.OperationID == "" {
				t.Errorf("%s %s has no operationId", method, path)
				continue
			}
			if prev, ok := seen[op.OperationID]; ok {
				t.Errorf("operationId %q used by %s and %s %s", op.OperationID, prev, method, path)
			}
			seen[op.OperationID] = method + " " + path
		}
	}
}

func TestGenerate_SkillUpsertDocuments201(t *testing.T) {
	doc := generate(t)
	skill := doc.Paths.Value("/api/content/skills/{category}").Put
	if skill.Responses.Value("201") == nil {
		t.Error("skill PUT should document 201")
	}
	project := doc.Paths.Value("/api/content/projects/{id}").Put
	if project.Responses.Value("201") != nil {
		t.Error("project PUT should not document 201")
	}
}

func TestGenerate_SchemasCarryValidationLimits(t *testing.T) {
	doc := generate(t)

	skill := doc.Components.Schemas["Skill"]
	if skill == nil || skill.Value == nil {
		t.Fatal("Skill schema missing")
	}
	level := skill.Value.Properties["level"].Value
	if level.Min == nil || *level.Min != 0 || level.Max == nil || *level.Max != 100 {
		t.Errorf("level bounds: min=%v max=%v", level.Min, level.Max)
	}

	project := doc.Components.Schemas["Project"].Value
	status := project.Properties["status"].Value
	if !reflect.DeepEqual(status.Enum, []interface{}{"Active", "Completed", "Planned"}) {
		t.Errorf("status enum = %v", status.Enum)
	}
	tech := project.Properties["technologies"].Value
	if tech.MaxItems == nil || *tech.MaxItems != 50 {
		t.Errorf("technologies maxItems = %v", tech.MaxItems)
	}

	info := doc.Components.Schemas["PersonalInfo"].Value
	if f := info.Properties["email"].Value.Format; f != "email" {
		t.Errorf("email format = %q", f)
	}
}

func TestGenerate_ErrorResponseSchema(t *testing.T) {
	doc := generate(t)
	errSchema := doc.Components.Schemas["ErrorResponse"]
	if errSchema == nil {
		t.Fatal("ErrorResponse schema missing")
	}
	detail := errSchema.Value.Properties["error"].Value
	for _, field := range []string{"code", "type", "fields"} {
		if _, ok := detail.Properties[field]; !ok {
			t.Errorf("error detail missing %q", field)
		}
	}
}

func TestGenerate_MarshalsToJSON(t *testing.T) {
	doc := generate(t)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", out["openapi"])
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"projects", "Projects"},
		{"", ""},
		{"a", "A"},
	}
	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
