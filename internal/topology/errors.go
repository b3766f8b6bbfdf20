package topology

// ErrorKind classifies failures raised by the topology core.
type ErrorKind string

const (
	ErrorInvalidInput    ErrorKind = "invalid_input"
	ErrorChannelNotFound ErrorKind = "channel_not_found"
	ErrorNotInitialized  ErrorKind = "not_initialized"
	ErrorUnpublished     ErrorKind = "unpublished"
)

// Error is the structured error returned by the core for rejected requests.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Channel string    `json:"channel,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: ...}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
