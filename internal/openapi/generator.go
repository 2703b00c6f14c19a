package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/service"
)

// BasePath is the prefix every API route is mounted under.
const BasePath = "/api"

// collection describes one content collection for path generation.
type collection struct {
	plural string
	param  string
	schema string
	value  interface{}
	upsert bool
}

var collections = []collection{
	{plural: "projects", param: "id", schema: "Project", value: model.Project{}},
	{plural: "skills", param: "category", schema: "Skill", value: model.Skill{}, upsert: true},
	{plural: "certifications", param: "name", schema: "Certification", value: model.Certification{}},
	{plural: "experience", param: "id", schema: "ExperienceEntry", value: model.ExperienceEntry{}},
	{plural: "education", param: "id", schema: "EducationEntry", value: model.EducationEntry{}},
}

// Generate builds the OpenAPI 3.1 document describing the folio API.
func Generate(baseURL, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Folio API",
			Description: "Portfolio content, contact inbox and visitor analytics.",
			Version:     version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Paths = openapi3.NewPaths()

	if err := registerSchemas(doc.Components.Schemas); err != nil {
		return nil, err
	}

	addAuthPaths(doc)
	addContentPaths(doc)
	addContactPaths(doc)
	addAnalyticsPaths(doc)

	return doc, nil
}

// registerSchemas reflects the model types into component schemas.
func registerSchemas(schemas openapi3.Schemas) error {
	values := map[string]interface{}{
		"PersonalInfo":      model.PersonalInfo{},
		"ContactMessage":    model.ContactMessage{},
		"ContactSubmission": model.ContactSubmission{},
		"TrackRequest":      model.TrackRequest{},
		"AnalyticsStats":    model.AnalyticsStats{},
		"Captcha":           service.Captcha{},
		"ListMeta":          model.ListMeta{},
	}
	for _, c := range collections {
		values[c.schema] = c.value
	}
	for name, v := range values {
		ref, err := openapi3gen.NewSchemaRefForValue(v, nil, openapi3gen.SchemaCustomizer(applyValidateTag))
		if err != nil {
			return fmt.Errorf("generate schema %s: %w", name, err)
		}
		schemas[name] = ref
	}

	schemas["Settings"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "Flat map of site settings. Values are booleans or strings.",
			AdditionalProperties: openapi3.AdditionalProperties{
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						OneOf: openapi3.SchemaRefs{
							{Value: openapi3.NewBoolSchema()},
							{Value: openapi3.NewStringSchema()},
						},
					},
				},
			},
		},
	}

	schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success": {Value: openapi3.NewBoolSchema()},
				"message": {Value: openapi3.NewStringSchema()},
				"error": {
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code": {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"type": {Value: openapi3.NewStringSchema().WithEnum(
								string(model.ErrorValidation), string(model.ErrorUnauthorized),
								string(model.ErrorForbidden), string(model.ErrorNotFound),
								string(model.ErrorConflict), string(model.ErrorTooManyRequests),
								string(model.ErrorInternal),
							)},
							"fields": {Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								AdditionalProperties: openapi3.AdditionalProperties{
									Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
								},
							}},
						},
					},
				},
			},
		},
	}
	return nil
}

// ─── Path Builders ──────────────────────────────────────────────────────────

func addAuthPaths(doc *openapi3.T) {
	login := &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Log in as the administrator",
		OperationID: "login",
		RequestBody: jsonBody("Admin credentials", objectSchema(map[string]*openapi3.Schema{
			"username": openapi3.NewStringSchema(),
			"password": openapi3.NewStringSchema().WithFormat("password"),
		}, "username", "password")),
		Responses: newResponses("200", "Session token", objectRef(map[string]*openapi3.Schema{
			"success":    openapi3.NewBoolSchema(),
			"message":    openapi3.NewStringSchema(),
			"token":      openapi3.NewStringSchema(),
			"token_type": openapi3.NewStringSchema(),
			"expires_at": openapi3.NewDateTimeSchema(),
			"user":       openapi3.NewObjectSchema(),
		}), "400", "401", "429"),
	}
	setOperation(doc, "/auth/login", http.MethodPost, login)

	verify := secured(&openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Check the current session token",
		OperationID: "verifyToken",
		Responses: newResponses("200", "Token is valid", objectRef(map[string]*openapi3.Schema{
			"success":    openapi3.NewBoolSchema(),
			"username":   openapi3.NewStringSchema(),
			"expires_at": openapi3.NewDateTimeSchema(),
		}), "401"),
	})
	setOperation(doc, "/auth/verify", http.MethodGet, verify)

	change := secured(&openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Change the admin password",
		OperationID: "changePassword",
		RequestBody: jsonBody("Current and new password", objectSchema(map[string]*openapi3.Schema{
			"current_password": openapi3.NewStringSchema().WithFormat("password"),
			"new_password":     openapi3.NewStringSchema().WithFormat("password").WithMinLength(service.MinPasswordLength).WithMaxLength(service.MaxPasswordLength),
		}, "current_password", "new_password")),
		Responses: newResponses("200", "Password changed", messageRef(), "400", "401"),
	})
	setOperation(doc, "/auth/change-password", http.MethodPost, change)

	logout := secured(&openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Revoke the current session token",
		OperationID: "logout",
		Responses:   newResponses("200", "Logged out", messageRef(), "401"),
	})
	setOperation(doc, "/auth/logout", http.MethodPost, logout)
}

func addContentPaths(doc *openapi3.T) {
	setOperation(doc, "/content/all", http.MethodGet, &openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Read every content collection at once",
		OperationID: "getAllContent",
		Responses: newResponses("200", "Content snapshot", objectRef(map[string]*openapi3.Schema{
			"success":        openapi3.NewBoolSchema(),
			"personal_info":  refSchema("PersonalInfo"),
			"projects":       arrayOf("Project"),
			"skills":         arrayOf("Skill"),
			"certifications": arrayOf("Certification"),
			"experience":     arrayOf("ExperienceEntry"),
			"education":      arrayOf("EducationEntry"),
			"settings":       refSchema("Settings"),
		})),
	})

	setOperation(doc, "/content/personal-info", http.MethodGet, &openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Read the profile",
		OperationID: "getPersonalInfo",
		Responses: newResponses("200", "Profile", objectRef(map[string]*openapi3.Schema{
			"success":       openapi3.NewBoolSchema(),
			"personal_info": refSchema("PersonalInfo"),
		}), "404"),
	})
	setOperation(doc, "/content/personal-info", http.MethodPut, secured(&openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Replace the profile",
		OperationID: "putPersonalInfo",
		RequestBody: jsonBody("Profile", refSchema("PersonalInfo")),
		Responses:   newResponses("200", "Profile replaced", messageRef(), "400", "401"),
	}))

	setOperation(doc, "/content/settings", http.MethodGet, &openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Read site settings merged over defaults",
		OperationID: "getSettings",
		Responses: newResponses("200", "Settings", objectRef(map[string]*openapi3.Schema{
			"success":  openapi3.NewBoolSchema(),
			"settings": refSchema("Settings"),
		})),
	})
	setOperation(doc, "/content/settings", http.MethodPut, secured(&openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Replace site settings",
		OperationID: "putSettings",
		RequestBody: jsonBody("Settings map", refSchema("Settings")),
		Responses:   newResponses("200", "Settings replaced", messageRef(), "400", "401"),
	}))

	for _, c := range collections {
		addCollectionPaths(doc, c)
	}
}

func addCollectionPaths(doc *openapi3.T, c collection) {
	list := "/content/" + c.plural
	item := fmt.Sprintf("%s/{%s}", list, c.param)
	name := capitalize(c.plural)

	setOperation(doc, list, http.MethodGet, &openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "List " + c.plural,
		OperationID: "list" + name,
		Responses: newResponses("200", "All "+c.plural, objectRef(map[string]*openapi3.Schema{
			"success": openapi3.NewBoolSchema(),
			c.plural:  arrayOf(c.schema),
		})),
	})
	setOperation(doc, list, http.MethodPost, secured(&openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Create a " + strings.ToLower(c.schema),
		OperationID: "create" + c.schema,
		RequestBody: jsonBody(c.schema, refSchema(c.schema)),
		Responses:   newResponses("201", "Created", dataRef(c.schema), "400", "401", "409"),
	}))

	replaceSummary := "Replace a " + strings.ToLower(c.schema)
	replaceStatus := []string{"400", "401", "404", "409"}
	if c.upsert {
		replaceSummary = "Create or replace a " + strings.ToLower(c.schema)
		replaceStatus = append(replaceStatus, "201")
	}
	pathParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(c.param).WithSchema(openapi3.NewStringSchema()),
	}
	setOperation(doc, item, http.MethodPut, secured(&openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     replaceSummary,
		OperationID: "replace" + c.schema,
		Parameters:  openapi3.Parameters{pathParam},
		RequestBody: jsonBody(c.schema, refSchema(c.schema)),
		Responses:   newResponses("200", "Replaced", dataRef(c.schema), replaceStatus...),
	}))
	setOperation(doc, item, http.MethodDelete, secured(&openapi3.Operation{
		Tags:        []string{"content"},
		Summary:     "Delete a " + strings.ToLower(c.schema),
		OperationID: "delete" + c.schema,
		Parameters:  openapi3.Parameters{pathParam},
		Responses:   newResponses("200", "Deleted", messageRef(), "401", "404"),
	}))
}

func addContactPaths(doc *openapi3.T) {
	setOperation(doc, "/contact/captcha", http.MethodGet, &openapi3.Operation{
		Tags:        []string{"contact"},
		Summary:     "Issue a contact form challenge",
		OperationID: "getCaptcha",
		Responses:   newResponses("200", "Challenge", refSchemaRef("Captcha")),
	})
	setOperation(doc, "/contact", http.MethodPost, &openapi3.Operation{
		Tags:        []string{"contact"},
		Summary:     "Send a message through the contact form",
		OperationID: "submitContact",
		RequestBody: jsonBody("Message", refSchema("ContactSubmission")),
		Responses: newResponses("201", "Stored", objectRef(map[string]*openapi3.Schema{
			"success": openapi3.NewBoolSchema(),
			"message": openapi3.NewStringSchema(),
			"id":      openapi3.NewUUIDSchema(),
			"captcha": refSchema("Captcha"),
		}), "400", "403", "429"),
	})

	listOp := secured(&openapi3.Operation{
		Tags:        []string{"contact"},
		Summary:     "List contact messages, newest first",
		OperationID: "listContacts",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("skip").WithSchema(openapi3.NewIntegerSchema().WithMin(0))},
			{Value: openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema().WithMin(1).WithMax(200))},
			{Value: openapi3.NewQueryParameter("unread_only").WithSchema(openapi3.NewBoolSchema())},
		},
		Responses: newResponses("200", "Messages", objectRef(map[string]*openapi3.Schema{
			"success":  openapi3.NewBoolSchema(),
			"contacts": arrayOf("ContactMessage"),
			"meta":     refSchema("ListMeta"),
		}), "401"),
	})
	setOperation(doc, "/contact/list", http.MethodGet, listOp)

	setOperation(doc, "/contact/{id}/read", http.MethodPatch, secured(&openapi3.Operation{
		Tags:        []string{"contact"},
		Summary:     "Mark a message as read",
		OperationID: "markContactRead",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewUUIDSchema())},
		},
		Responses: newResponses("200", "Marked", objectRef(map[string]*openapi3.Schema{
			"success":  openapi3.NewBoolSchema(),
			"modified": openapi3.NewBoolSchema(),
		}), "401", "404"),
	}))
}

func addAnalyticsPaths(doc *openapi3.T) {
	setOperation(doc, "/analytics/track", http.MethodPost, &openapi3.Operation{
		Tags:        []string{"analytics"},
		Summary:     "Record a page view or click",
		OperationID: "trackEvent",
		RequestBody: jsonBody("Event", refSchema("TrackRequest")),
		Responses: newResponses("200", "Accepted or dropped", objectRef(map[string]*openapi3.Schema{
			"success":  openapi3.NewBoolSchema(),
			"accepted": openapi3.NewBoolSchema(),
			"event_id": openapi3.NewUUIDSchema(),
		}), "400"),
	})

	stats := &openapi3.Operation{
		Tags:        []string{"analytics"},
		Summary:     "Aggregate visitor statistics",
		Description: "recent_visitors is only present when a valid bearer token is sent.",
		OperationID: "getStats",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("time_range").WithSchema(
				openapi3.NewStringSchema().WithEnum(
					string(model.Range7Days), string(model.Range30Days), string(model.RangeAll),
				),
			)},
		},
		Security:  &openapi3.SecurityRequirements{{}, {"bearerAuth": {}}},
		Responses: newResponses("200", "Statistics", refSchemaRef("AnalyticsStats"), "400"),
	}
	setOperation(doc, "/analytics/stats", http.MethodGet, stats)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func setOperation(doc *openapi3.T, path, method string, op *openapi3.Operation) {
	full := BasePath + path
	item := doc.Paths.Value(full)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(full, item)
	}
	item.SetOperation(method, op)
}

func secured(op *openapi3.Operation) *openapi3.Operation {
	op.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	return op
}

func refSchema(name string) *openapi3.Schema {
	return &openapi3.Schema{AllOf: openapi3.SchemaRefs{refSchemaRef(name)}}
}

func refSchemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func arrayOf(name string) *openapi3.Schema {
	return &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: refSchemaRef(name),
	}
}

func objectSchema(props map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, p := range props {
		s.WithProperty(name, p)
	}
	s.Required = required
	return s
}

func objectRef(props map[string]*openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: objectSchema(props)}
}

func messageRef() *openapi3.SchemaRef {
	return objectRef(map[string]*openapi3.Schema{
		"success": openapi3.NewBoolSchema(),
		"message": openapi3.NewStringSchema(),
	})
}

func dataRef(schema string) *openapi3.SchemaRef {
	return objectRef(map[string]*openapi3.Schema{
		"success": openapi3.NewBoolSchema(),
		"message": openapi3.NewStringSchema(),
		"id":      openapi3.NewStringSchema(),
		"data":    refSchema(schema),
	})
}

func jsonBody(description string, schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchema(schema),
	}
}

var statusDescriptions = map[string]string{
	"201": "Created",
	"400": "Bad request",
	"401": "Unauthorized",
	"403": "Forbidden",
	"404": "Not found",
	"409": "Conflict",
	"429": "Too many requests",
	"500": "Internal server error",
}

// newResponses builds a Responses map with a success response and the listed
// error responses. Every operation can fail with 500.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, extra ...string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := refSchemaRef("ErrorResponse")
	for _, code := range append(extra, "500") {
		desc := statusDescriptions[code]
		if code == "201" {
			responses.Set(code, &openapi3.ResponseRef{
				Value: &openapi3.Response{
					Description: &desc,
					Content:     openapi3.NewContentWithJSONSchemaRef(schema),
				},
			})
			continue
		}
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// capitalize returns a string with its first character uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
