package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dylanmazurek/debridify/internal/request"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindHTTP
	KindEmptyPayload
	KindValidation
)

var (
	ErrTransport    = errors.New("transport failure")
	ErrHTTP         = errors.New("http failure")
	ErrEmptyPayload = errors.New("empty payload")
	ErrValidation   = errors.New("validation failure")
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindEmptyPayload:
		return "empty_payload"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindHTTP:
		return ErrHTTP
	case KindEmptyPayload:
		return ErrEmptyPayload
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error is the single failure type crossing the repository boundary.
type Error struct {
	Kind       ErrorKind
	Provider   Provider
	Op         string
	StatusCode int    // provider HTTP status, 0 when no response
	Code       string // provider-native error code
	Message    string // provider-native error text
	Err        error
}

func (e *Error) Error() string {
	var prefix string
	switch {
	case e.Provider != "" && e.Op != "":
		prefix = fmt.Sprintf("%s %s: ", e.Provider, e.Op)
	case e.Provider != "":
		prefix = string(e.Provider) + ": "
	case e.Op != "":
		prefix = e.Op + ": "
	}

	return prefix + e.detail()
}

func (e *Error) detail() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case e.Kind == KindEmptyPayload:
		return "provider returned no data"
	case e.Kind == KindTransport:
		return "network error, check your connection"
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " failure"
	}
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// Unauthorized reports a provider rejecting the credential.
func (e *Error) Unauthorized() bool {
	return e.Kind == KindHTTP && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Message returns the short user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.detail()
	}

	return err.Error()
}

func NewValidationError(p Provider, op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Provider: p, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewEmptyPayloadError(p Provider, op string, err error) *Error {
	return &Error{Kind: KindEmptyPayload, Provider: p, Op: op, Err: err}
}

// NewEnvelopeError reports a 2xx response whose body declares failure.
func NewEnvelopeError(p Provider, op string, status int, code, message string) *Error {
	return &Error{Kind: KindHTTP, Provider: p, Op: op, StatusCode: status, Code: code, Message: message}
}

// EnvelopeParser extracts the provider code and message from an error body.
type EnvelopeParser func(body []byte) (code, message string)

// Classify turns a request error into *Error. Errors already classified keep
// their kind; missing provider and op are filled in.
func Classify(p Provider, op string, err error, parse EnvelopeParser) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Provider == "" {
			e.Provider = p
		}
		if e.Op == "" {
			e.Op = op
		}
		return e
	}

	var httpErr *request.HTTPError
	if errors.As(err, &httpErr) {
		e = &Error{Kind: KindHTTP, Provider: p, Op: op, StatusCode: httpErr.StatusCode, Err: err}
		if parse != nil && len(httpErr.Body) > 0 {
			e.Code, e.Message = parse(httpErr.Body)
			e.Message = strings.TrimSpace(e.Message)
		}
		return e
	}

	return &Error{Kind: KindTransport, Provider: p, Op: op, Err: err}
}
