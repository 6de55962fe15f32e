package profile

// ValidationError reports a profile that breaks a caller contract. Nothing is rendered or
// run when one is returned.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(field string, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func NewValidationWrap(field string, msg string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: msg, Err: err}
}
