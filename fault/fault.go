package fault

import (
	"errors"
	"fmt"
)

type Code string

const (
	UnknownCode          Code = "unknown"
	NotFoundCode         Code = "not_found"
	BadInputCode         Code = "bad_input"
	PermissionDeniedCode Code = "permission_denied"
	UnsupportedCode      Code = "unsupported"
)

// FieldErrorsMetadata maps a field (or document path) to its validation messages.
type FieldErrorsMetadata map[string][]string

// Add appends a message for field.
func (m FieldErrorsMetadata) Add(field, message string) {
	m[field] = append(m[field], message)
}

type Fault struct {
	code     Code
	message  string
	metadata any
	original error
}

func New(code Code, message string) Fault {
	return Fault{
		code:    code,
		message: message,
	}
}

func (f Fault) WithMetadata(metadata any) Fault {
	e := f
	e.metadata = metadata
	return e
}

func (f Fault) WithOriginal(original error) Fault {
	e := f
	e.original = original
	return e
}

func (f Fault) Code() Code {
	return f.code
}

func (f Fault) Message() string {
	return f.message
}

func (f Fault) Metadata() any {
	return f.metadata
}

func (f Fault) Original() error {
	return f.original
}

func (f Fault) Unwrap() error {
	return f.original
}

func (f Fault) Error() string {
	if f.original != nil {
		if f.message == "" {
			return f.original.Error()
		}
		return fmt.Sprintf("%s: %v", f.message, f.original)
	}
	if f.message == "" {
		if md, ok := f.metadata.(FieldErrorsMetadata); ok {
			return fmt.Sprintf("%s: %v", f.code, map[string][]string(md))
		}
		return string(f.code)
	}
	return f.message
}

// HasCode reports whether err is a Fault with the given code.
func HasCode(err error, code Code) bool {
	var f Fault
	return errors.As(err, &f) && f.code == code
}
