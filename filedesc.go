//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/nsprtest/prfd/internal/bindings"
	"github.com/nsprtest/prfd/internal/handles"
)

// FileDesc is a synthetic layered NSPR file descriptor whose I/O is served
// by Go callbacks instead of a real socket or file. It owns its method
// table, its native handle, and the PRFileDesc allocated by NSPR.
type FileDesc struct {
	mu      sync.Mutex
	methods *IOMethods     // NSPR-owned memory, freed on Close
	osfd    int32          // synthetic native handle, registry key
	prFD    unsafe.Pointer // PRFileDesc from PR_AllocFileDesc
	cb      *IOCallbacks
	closed  bool
}

// New creates a layered descriptor registered with NSPR. Callbacks start
// unset; assign them with SetCallbacks before calling Read or Write.
func New() (*FileDesc, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	initTrampolines()

	methods, err := newMethodTable(readTrampoline, writeTrampoline, getPeerNameTrampoline)
	if err != nil {
		return nil, err
	}

	fd := &FileDesc{methods: methods}
	fd.osfd = handles.Register(fd)

	fd.prFD = bindings.AllocFileDesc(fd.osfd, unsafe.Pointer(methods))
	if fd.prFD == nil {
		handles.Unregister(fd.osfd)
		freeMethodTable(methods)
		return nil, lastError("PR_AllocFileDesc")
	}
	return fd, nil
}

// SetCallbacks assigns the descriptor's I/O callbacks. Passing nil clears
// them; Read and Write refuse to run while the matching callback is unset.
func (fd *FileDesc) SetCallbacks(cb *IOCallbacks) {
	fd.mu.Lock()
	fd.cb = cb
	fd.mu.Unlock()
}

func (fd *FileDesc) callbacks() *IOCallbacks {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.cb
}

// Handle returns the synthetic native handle NSPR knows this descriptor by.
func (fd *FileDesc) Handle() int32 {
	return fd.osfd
}

func (fd *FileDesc) isClosed() bool {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.closed
}

// Read asks NSPR for up to size bytes. NSPR dispatches through the method
// table back into the read callback, which fills the buffer. The read
// callback must be assigned first.
func (fd *FileDesc) Read(size int) ([]byte, error) {
	cb := fd.callbacks()
	if cb == nil || cb.Read == nil {
		return nil, ErrNoReadCallback
	}
	if fd.isClosed() {
		return nil, ErrClosed
	}
	if size <= 0 {
		return []byte{}, nil
	}

	// PR_GetError reads thread-local state; stay on one OS thread across
	// the call and the error fetch.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	buf := make([]byte, size)
	n := bindings.Read(fd.prFD, unsafe.Pointer(&buf[0]), int32(size))
	if n < 0 {
		return nil, lastError("PR_Read")
	}
	return buf[:n], nil
}

// Write hands p to NSPR, which dispatches through the method table back into
// the write callback. On success the same bytes are returned, which keeps
// round-trip assertions in tests short. The write callback must be assigned
// first.
func (fd *FileDesc) Write(p []byte) ([]byte, error) {
	cb := fd.callbacks()
	if cb == nil || cb.Write == nil {
		return nil, ErrNoWriteCallback
	}
	if fd.isClosed() {
		return nil, ErrClosed
	}
	if len(p) == 0 {
		return p, nil
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := bindings.Write(fd.prFD, unsafe.Pointer(&p[0]), int32(len(p)))
	if n < 0 {
		return nil, lastError("PR_Write")
	}
	return p, nil
}

// GetPeerName reports whether the peer-name query succeeds. The layered
// descriptor's getpeername stub always fills a zeroed address, so this is
// true for any open descriptor.
func (fd *FileDesc) GetPeerName() bool {
	_, ok := fd.PeerName()
	return ok
}

// PeerName performs the peer-name query and returns the raw PRNetAddr bytes
// NSPR observed, all-zero for a healthy layered descriptor.
func (fd *FileDesc) PeerName() ([]byte, bool) {
	if fd.isClosed() {
		return nil, false
	}

	addr := make([]byte, NetAddrSize)
	ret := bindings.GetPeerName(fd.prFD, unsafe.Pointer(&addr[0]))
	return addr, ret == Success
}

// Close frees the PRFileDesc and the method table and retires the native
// handle. The descriptor must not be used afterwards. Safe to call twice.
func (fd *FileDesc) Close() error {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.closed {
		return nil
	}
	fd.closed = true

	if fd.prFD != nil {
		bindings.FreeFileDesc(fd.prFD)
		fd.prFD = nil
	}
	if fd.methods != nil {
		freeMethodTable(fd.methods)
		fd.methods = nil
	}
	handles.Unregister(fd.osfd)
	return nil
}
