package model

// ErrorType classifies a failed request in the error envelope.
type ErrorType string

const (
	ErrorValidation      ErrorType = "ValidationError"
	ErrorUnauthorized    ErrorType = "Unauthorized"
	ErrorForbidden       ErrorType = "Forbidden"
	ErrorNotFound        ErrorType = "NotFound"
	ErrorConflict        ErrorType = "Conflict"
	ErrorTooManyRequests ErrorType = "TooManyRequests"
	ErrorInternal        ErrorType = "InternalError"
)

// ErrorResponse is the envelope for every failed request. Success is always
// false so clients can branch on the same field for every response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code   int               `json:"code"`
	Type   ErrorType         `json:"type"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ListMeta describes the page returned by a paginated list endpoint.
type ListMeta struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
	Skip   int `json:"skip"`
	Limit  int `json:"limit"`
}
