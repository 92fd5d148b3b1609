package validator

// Validator validates a struct value.
//
// A nil error means data is valid. Failures are returned as
// V10ValidationError so callers can render per-field messages.
type Validator interface {
	Validate(data any) error
}
