//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"errors"
	"fmt"

	"github.com/nsprtest/prfd/internal/bindings"
)

// NSPR status sentinels (PRStatus). Method table callbacks and the PR_* I/O
// entry points share this convention.
const (
	Success = 0
	Failure = -1
)

// Common NSPR error codes (prerror.h).
const (
	ErrOutOfMemoryCode      int32 = -6000 // PR_OUT_OF_MEMORY_ERROR
	ErrBadDescriptorCode    int32 = -5999 // PR_BAD_DESCRIPTOR_ERROR
	ErrWouldBlockCode       int32 = -5998 // PR_WOULD_BLOCK_ERROR
	ErrAccessFaultCode      int32 = -5997 // PR_ACCESS_FAULT_ERROR
	ErrInvalidMethodCode    int32 = -5996 // PR_INVALID_METHOD_ERROR
	ErrIllegalAccessCode    int32 = -5995 // PR_ILLEGAL_ACCESS_ERROR
	ErrUnknownCode          int32 = -5994 // PR_UNKNOWN_ERROR
	ErrPendingInterruptCode int32 = -5993 // PR_PENDING_INTERRUPT_ERROR
	ErrNotImplementedCode   int32 = -5992 // PR_NOT_IMPLEMENTED_ERROR
	ErrIOCode               int32 = -5991 // PR_IO_ERROR
	ErrIOTimeoutCode        int32 = -5990 // PR_IO_TIMEOUT_ERROR
	ErrIOPendingCode        int32 = -5989 // PR_IO_PENDING_ERROR
	ErrInvalidArgumentCode  int32 = -5987 // PR_INVALID_ARGUMENT_ERROR
)

// Common errors
var (
	// ErrNoReadCallback indicates Read was called before a read callback
	// was assigned.
	ErrNoReadCallback = errors.New("prfd: no read callback assigned")

	// ErrNoWriteCallback indicates Write was called before a write callback
	// was assigned.
	ErrNoWriteCallback = errors.New("prfd: no write callback assigned")

	// ErrClosed indicates the descriptor has been closed.
	ErrClosed = errors.New("prfd: file descriptor is closed")

	// ErrOutOfMemory indicates NSPR's allocator failed.
	ErrOutOfMemory = errors.New("prfd: out of memory")
)

// Error is a failed NSPR call. It carries the calling thread's PR error code
// and the OS error, if any, that produced it.
type Error struct {
	Code    int32  // PR error code (PR_GetError)
	OSCode  int32  // underlying OS error (PR_GetOSError), 0 if none
	Op      string // NSPR entry point that failed
	Message string // symbolic name of Code, e.g. "PR_IO_ERROR"
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.OSCode != 0 {
		return fmt.Sprintf("nspr %s: %s (code %d, os error %d)", e.Op, e.Message, e.Code, e.OSCode)
	}
	return fmt.Sprintf("nspr %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// lastError captures the calling thread's PR error state after a failed call
// to op. The caller must still be on the OS thread that made the call, since
// NSPR keeps error state per thread.
func lastError(op string) error {
	code := bindings.GetError()
	msg := bindings.ErrorToName(code)
	if msg == "" {
		msg = "unknown error"
	}
	return &Error{
		Code:    code,
		OSCode:  bindings.GetOSError(),
		Op:      op,
		Message: msg,
	}
}

// Code returns the PR error code from an error, or 0 if err is not an NSPR
// error.
func Code(err error) int32 {
	var prErr *Error
	if errors.As(err, &prErr) {
		return prErr.Code
	}
	return 0
}

// IsWouldBlock returns true if the error is PR_WOULD_BLOCK_ERROR.
func IsWouldBlock(err error) bool {
	return Code(err) == ErrWouldBlockCode
}
