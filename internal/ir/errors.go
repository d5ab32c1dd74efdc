package ir

import (
	"errors"
	"fmt"
)

// BuildError reports a violation of the graph-construction contract.
//
// These are programmer errors: a well-formed front end never triggers them,
// and the only sane handling is to abandon the compilation unit. They are
// returned rather than raised so tests can assert the code.
type BuildError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operator being built.
	Op OpCode

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes build errors.
type ErrorCode string

const (
	// ErrCodeBadArity indicates the wrong number of inputs for an operator.
	ErrCodeBadArity ErrorCode = "BAD_ARITY"

	// ErrCodeBadCast indicates an explicit cast applied to the wrong type.
	ErrCodeBadCast ErrorCode = "BAD_CAST"

	// ErrCodeBadCoercion indicates a coercion between unrelated types.
	ErrCodeBadCoercion ErrorCode = "BAD_COERCION"

	// ErrCodeBadOpCode indicates an operator that cannot be built this way,
	// such as a constant through the operator path.
	ErrCodeBadOpCode ErrorCode = "BAD_OPCODE"

	// ErrCodeBadVariable indicates a substitution target that is not an
	// axis variable.
	ErrCodeBadVariable ErrorCode = "BAD_VARIABLE"

	// ErrCodeStaleNode indicates a node that was collected or belongs to
	// another graph.
	ErrCodeStaleNode ErrorCode = "STALE_NODE"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func newBuildError(code ErrorCode, op OpCode, format string, args ...any) *BuildError {
	return &BuildError{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCodeOf returns the code of a wrapped BuildError, or "".
func ErrorCodeOf(err error) ErrorCode {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsArityError returns true if err is a BAD_ARITY build error.
func IsArityError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeBadArity
}

// IsCastError returns true if err is a BAD_CAST build error.
func IsCastError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeBadCast
}

// IsCoercionError returns true if err is a BAD_COERCION build error.
func IsCoercionError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeBadCoercion
}

// IsStaleError returns true if err is a STALE_NODE build error.
func IsStaleError(err error) bool {
	return ErrorCodeOf(err) == ErrCodeStaleNode
}
