//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Code: ErrIOCode, Op: "PR_Read", Message: "PR_IO_ERROR"}
	assert.Equal(t, "nspr PR_Read: PR_IO_ERROR (code -5991)", err.Error())

	withOS := &Error{Code: ErrIOCode, OSCode: 32, Op: "PR_Write", Message: "PR_IO_ERROR"}
	assert.Equal(t, "nspr PR_Write: PR_IO_ERROR (code -5991, os error 32)", withOS.Error())
}

func TestCode(t *testing.T) {
	err := &Error{Code: ErrWouldBlockCode, Op: "PR_Read", Message: "PR_WOULD_BLOCK_ERROR"}
	assert.Equal(t, ErrWouldBlockCode, Code(err))
	assert.Equal(t, ErrWouldBlockCode, Code(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, int32(0), Code(errors.New("plain")))
	assert.Equal(t, int32(0), Code(nil))
}

func TestIsWouldBlock(t *testing.T) {
	assert.Assert(t, IsWouldBlock(&Error{Code: ErrWouldBlockCode}))
	assert.Assert(t, !IsWouldBlock(&Error{Code: ErrIOCode}))
	assert.Assert(t, !IsWouldBlock(errors.New("plain")))
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, 0, Success)
	assert.Equal(t, -1, Failure)
}
