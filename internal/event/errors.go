package event

// ParseError reports a structurally invalid event. It is fatal for the event
// that produced it and is never retried.
type ParseError struct {
	Message string
}

func NewParseError(message string) *ParseError {
	return &ParseError{Message: message}
}

func (e *ParseError) Error() string {
	return e.Message
}
