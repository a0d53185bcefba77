package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code: the business code, the HTTP
// status it maps to, and the user-facing message.
type Coder interface {
	// Code returns the business error code.
	Code() int
	// HTTPStatus returns the HTTP status associated with the code.
	HTTPStatus() int
	// String returns the user-facing message for the code.
	String() string
	// Reference returns a document link for the code, if any.
	Reference() string
}

var (
	codesMu sync.RWMutex
	codes   = map[int]Coder{}
)

// unknownCoder is returned for errors carrying no registered code.
var unknownCoder = defaultCoder{
	code: 1, http: http.StatusInternalServerError,
	msg: "An internal server error occurred",
}

type defaultCoder struct {
	code int
	http int
	msg  string
	ref  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return c.ref }

// NewCoder builds a Coder from its parts.
func NewCoder(code, httpStatus int, msg string) Coder {
	return defaultCoder{code: code, http: httpStatus, msg: msg}
}

// Register registers a Coder. Registering code 1 is reserved.
func Register(coder Coder) error {
	if coder.Code() == unknownCoder.Code() {
		return fmt.Errorf("code %d is reserved", unknownCoder.Code())
	}
	codesMu.Lock()
	defer codesMu.Unlock()
	if _, ok := codes[coder.Code()]; ok {
		return fmt.Errorf("code %d is already registered", coder.Code())
	}
	codes[coder.Code()] = coder
	return nil
}

// MustRegister registers a Coder and panics on conflict.
func MustRegister(coder Coder) {
	if err := Register(coder); err != nil {
		panic(err)
	}
}

// withCode is an error carrying a registered code and an optional cause.
type withCode struct {
	code  int
	msg   string
	cause error
}

func (w *withCode) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("%s: %v", w.msg, w.cause)
	}
	return w.msg
}

func (w *withCode) Unwrap() error { return w.cause }

// WithCode creates an error with the given registered code.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{code: code, msg: fmt.Sprintf(format, args...)}
}

// WrapC wraps an existing error with a registered code and message.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withCode{code: code, msg: fmt.Sprintf(format, args...), cause: err}
}

// ParseCoder resolves the Coder attached to err. Errors without a code
// resolve to the unknown coder.
func ParseCoder(err error) Coder {
	var w *withCode
	if errors.As(err, &w) {
		codesMu.RLock()
		defer codesMu.RUnlock()
		if coder, ok := codes[w.code]; ok {
			return coder
		}
	}
	return unknownCoder
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code int) bool {
	var w *withCode
	for errors.As(err, &w) {
		if w.code == code {
			return true
		}
		err = w.cause
		if err == nil {
			return false
		}
	}
	return false
}
