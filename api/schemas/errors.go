package schemas

import "fmt"

// -- Typed Error Codes --

// ErrorCode is a small closed set of machine-readable failure classes carried
// on RPC responses. The supervisor keys its crash classification off these
// instead of matching on error prose.
type ErrorCode string

const (
	ErrCodeNone              ErrorCode = ""
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeContextCanceled   ErrorCode = "context_canceled"
	ErrCodeConnectionRefused ErrorCode = "connection_refused"
	ErrCodeInvalidRequest    ErrorCode = "invalid_request"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeActionFailed      ErrorCode = "action_failed"
	ErrCodeNavigation        ErrorCode = "navigation"
	ErrCodeInternal          ErrorCode = "internal"
)

// CrashSymptom reports whether a code indicates the engine process (or its
// browser) died, as opposed to an ordinary operation failure.
func (c ErrorCode) CrashSymptom() bool {
	return c == ErrCodeContextCanceled || c == ErrCodeConnectionRefused
}

// Error is an operation failure with an attached code. It satisfies the error
// interface so it can flow through ordinary return paths.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == ErrCodeNone {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a coded error.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, walking wrapped errors. Errors
// without a code map to ErrCodeInternal; nil maps to ErrCodeNone.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeNone
	}
	for e := err; e != nil; {
		if coded, ok := e.(*Error); ok {
			return coded.Code
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ErrCodeInternal
}
