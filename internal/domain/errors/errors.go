package errors

import "errors"

var (
	ErrTodoNotFound       = errors.New("todo not found")
	ErrEmptyText          = errors.New("please enter a todo text")
	ErrInvalidPriority    = errors.New("invalid todo priority")
	ErrInvalidFilter      = errors.New("invalid todo filter")
	ErrInvalidID          = errors.New("invalid todo id")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("resource not found")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrInternalServer     = errors.New("internal server error")
	ErrBackendUnavailable = errors.New("backend service unavailable")
	ErrRequestFailed      = errors.New("api request failed")
	ErrDecodeResponse     = errors.New("failed to decode api response")

	ErrInvalidGzipRequest    = errors.New("invalid gzip request body")
	ErrGzipCompressionFailed = errors.New("gzip compression failed")

	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value format")
	ErrConfigUnsupported    = errors.New("unsupported config file extension")
	ErrInvalidBackendURL    = errors.New("invalid backend url")
	ErrInvalidAPIPrefix     = errors.New("api prefix must start with /")
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
)
