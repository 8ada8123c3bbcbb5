package service

// Domain-rule failures carry a code and a single human-readable message
// that the HTTP layer passes through verbatim. Input-validation failures
// are a separate class and never reach this layer.

type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}
