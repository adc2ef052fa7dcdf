package serrors

import "fmt"

// Base is a structured error with a stable machine-readable code.
type Base struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Base) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message string) *Base {
	return &Base{Code: code, Message: message}
}

// FieldError attaches a field name to a Base error for form-level feedback.
type FieldError struct {
	Base
	Field string `json:"field"`
}

func NewFieldRequiredError(field string) *FieldError {
	return &FieldError{
		Base:  Base{Code: "FIELD_REQUIRED", Message: fmt.Sprintf("%s is required", field)},
		Field: field,
	}
}

func NewInvalidFieldError(field, message string) *FieldError {
	return &FieldError{
		Base:  Base{Code: "FIELD_INVALID", Message: message},
		Field: field,
	}
}
