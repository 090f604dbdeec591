package serverutils

import "conversation-core/internal/pkg/validation"

// ValidateRequest checks a request DTO against its `validate` tags.
func ValidateRequest(req interface{}) error {
	return validation.Struct(req)
}
