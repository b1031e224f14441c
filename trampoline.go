//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"errors"
	"io"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/nsprtest/prfd/internal/bindings"
	"github.com/nsprtest/prfd/internal/handles"
)

// IOCallbacks supplies the Go-side behavior of a synthetic descriptor.
type IOCallbacks struct {
	// Read fills p with up to len(p) bytes and returns the number of bytes
	// produced. Return 0, io.EOF at end of stream; NSPR reports EOF to its
	// caller as a zero-length read. Any other error is reported as
	// PR_FAILURE.
	Read func(p []byte) (int, error)

	// Write consumes the len(p) bytes NSPR handed down and returns the
	// number of bytes accepted. An error is reported to NSPR as PR_FAILURE.
	//
	// p aliases NSPR-owned memory and must not be retained past the call.
	Write func(p []byte) (int, error)
}

// Trampolines are created once and shared by every FileDesc. The PRIOMethods
// read/write/getpeername signatures carry no user-context pointer, so the
// owning instance is recovered from the descriptor's native handle instead.
var (
	trampolineOnce        sync.Once
	readTrampoline        uintptr
	writeTrampoline       uintptr
	getPeerNameTrampoline uintptr
)

func initTrampolines() {
	trampolineOnce.Do(func() {
		// PRInt32 (*read)(PRFileDesc *fd, void *buf, PRInt32 amount)
		readTrampoline = purego.NewCallback(func(_ purego.CDecl, fd, buf unsafe.Pointer, amount int32) int32 {
			return dispatchRead(ownerOf(fd).callbacks(), buf, amount)
		})

		// PRInt32 (*write)(PRFileDesc *fd, const void *buf, PRInt32 amount)
		writeTrampoline = purego.NewCallback(func(_ purego.CDecl, fd, buf unsafe.Pointer, amount int32) int32 {
			return dispatchWrite(ownerOf(fd).callbacks(), buf, amount)
		})

		// PRStatus (*getpeername)(PRFileDesc *fd, PRNetAddr *addr)
		getPeerNameTrampoline = purego.NewCallback(func(_ purego.CDecl, fd, addr unsafe.Pointer) int32 {
			return fillPeerName(addr)
		})
	})
}

// ownerOf resolves the descriptor NSPR called back with to its owning
// FileDesc. An unregistered handle panics (see handles.MustLookup); the
// panic cannot unwind across NSPR's C frames, so the runtime aborts the
// process, which is the intended fail-fast behavior for a diverged registry.
func ownerOf(fd unsafe.Pointer) *FileDesc {
	osfd := bindings.FileDescToNativeHandle(fd)
	return handles.MustLookup(osfd).(*FileDesc)
}

// dispatchRead runs the user read callback against NSPR's buffer.
func dispatchRead(cb *IOCallbacks, buf unsafe.Pointer, amount int32) int32 {
	if cb == nil || cb.Read == nil {
		return Failure
	}
	if amount <= 0 {
		return 0
	}

	p := unsafe.Slice((*byte)(buf), amount)
	n, err := cb.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) && n >= 0 {
			return int32(n)
		}
		return Failure
	}
	return int32(n)
}

// dispatchWrite runs the user write callback against NSPR's buffer.
func dispatchWrite(cb *IOCallbacks, buf unsafe.Pointer, amount int32) int32 {
	if cb == nil || cb.Write == nil {
		return Failure
	}
	if amount <= 0 {
		return 0
	}

	p := unsafe.Slice((*byte)(buf), amount)
	n, err := cb.Write(p)
	if err != nil {
		return Failure
	}
	return int32(n)
}

// fillPeerName zero-fills the PRNetAddr and reports success. The layered
// descriptor has no real peer; this satisfies callers that only require the
// getpeername query to succeed.
func fillPeerName(addr unsafe.Pointer) int32 {
	if addr == nil {
		return Failure
	}
	p := unsafe.Slice((*byte)(addr), NetAddrSize)
	for i := range p {
		p[i] = 0
	}
	return Success
}
