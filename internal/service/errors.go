package service

import "fmt"

// ValidationError reports an invalid request parameter by field name. It is
// raised before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidParam(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
