package errdefs

import "errors"

type ErrorType int

const (
	// ErrTypeNotAnArtifact marks files that are legitimately part of a
	// repository tree but carry no coordinates (checksums, metadata,
	// hidden files). Scanners skip these silently.
	ErrTypeNotAnArtifact ErrorType = iota
	ErrTypeExtraction
	ErrTypeIndexWrite
	ErrTypeSearch
	ErrTypeQueryParse
	ErrTypeContextClosed
	ErrTypeIndexCorrupted
	ErrTypeInvalidConfig
	ErrTypeScanFailed
	ErrTypeWatcherFailed
)

type CustomError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(errType ErrorType, message string, err error) error {
	return &CustomError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err (or anything it wraps) is a CustomError of
// the given type.
func IsType(err error, errType ErrorType) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

var (
	ErrNotAnArtifact  = &CustomError{Type: ErrTypeNotAnArtifact, Message: "not an artifact"}
	ErrContextClosed  = &CustomError{Type: ErrTypeContextClosed, Message: "index context is closed"}
	ErrIndexCorrupted = &CustomError{Type: ErrTypeIndexCorrupted, Message: "index corrupted"}
	ErrInvalidConfig  = &CustomError{Type: ErrTypeInvalidConfig, Message: "invalid config"}
)
