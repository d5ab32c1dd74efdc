package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while the engine compiles or
// manages kernels.
//
// Runtime errors include:
//   - Duplicate kernel: a name registered twice in one session
//   - Unknown kernel: a lookup or specialization of an unregistered name
//   - Unbound parameter: a kernel parameter with no axis binding
//   - Lowering failed: the expression could not be built
//   - Cache failed: the kernel store rejected a read or write
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Kernel names the affected kernel.
	Kernel string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateKernel indicates a kernel name is already registered.
	ErrCodeDuplicateKernel RuntimeErrorCode = "DUPLICATE_KERNEL"

	// ErrCodeUnknownKernel indicates a kernel name is not registered.
	ErrCodeUnknownKernel RuntimeErrorCode = "UNKNOWN_KERNEL"

	// ErrCodeUnboundParameter indicates a parameter without an axis binding.
	ErrCodeUnboundParameter RuntimeErrorCode = "UNBOUND_PARAMETER"

	// ErrCodeLoweringFailed indicates the expression could not be built.
	ErrCodeLoweringFailed RuntimeErrorCode = "LOWERING_FAILED"

	// ErrCodeCacheFailed indicates the kernel store failed.
	ErrCodeCacheFailed RuntimeErrorCode = "CACHE_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Kernel != "" {
		return fmt.Sprintf("%s: %s (kernel=%s)", e.Code, msg, e.Kernel)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the RuntimeErrorCode of err, or "" if err is not a
// RuntimeError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnknownKernel returns true if err reports an unregistered kernel.
func IsUnknownKernel(err error) bool {
	return CodeOf(err) == ErrCodeUnknownKernel
}

// IsDuplicateKernel returns true if err reports a name registered twice.
func IsDuplicateKernel(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateKernel
}

func newRuntimeError(code RuntimeErrorCode, kernel string, err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Kernel:  kernel,
		Err:     err,
	}
}
