//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"unsafe"

	"github.com/nsprtest/prfd/internal/bindings"
)

// DescType is the NSPR descriptor type tag stored in the first method table
// slot (PRDescType in prio.h).
type DescType int32

const (
	DescTypeFile      DescType = 1
	DescTypeTCPSocket DescType = 2
	DescTypeUDPSocket DescType = 3
	DescTypeLayered   DescType = 4
	DescTypePipe      DescType = 5
)

const (
	// MethodTableSize is the byte size of PRIOMethods in the NSPR ABI.
	MethodTableSize = 288

	// MethodTableSlots is the number of pointer-sized slots in the table.
	MethodTableSlots = MethodTableSize / 8

	// NetAddrSize is the byte size of PRNetAddr, the address union NSPR
	// hands to getpeername regardless of address family.
	NetAddrSize = 112
)

// IOMethods mirrors NSPR's PRIOMethods struct: the descriptor type tag
// followed by one pointer per I/O operation, reserved slots included.
// NSPR dispatches through this table blindly, so the layout has to match the
// C struct byte for byte; a null slot tells NSPR the operation is
// unsupported.
type IOMethods struct {
	FileType        uintptr // PRDescType tag in the low 32 bits
	Close           uintptr
	Read            uintptr
	Write           uintptr
	Available       uintptr
	Available64     uintptr
	Fsync           uintptr
	Seek            uintptr
	Seek64          uintptr
	FileInfo        uintptr
	FileInfo64      uintptr
	Writev          uintptr
	Connect         uintptr
	Accept          uintptr
	Bind            uintptr
	Listen          uintptr
	Shutdown        uintptr
	Recv            uintptr
	Send            uintptr
	Recvfrom        uintptr
	Sendto          uintptr
	Poll            uintptr
	Acceptread      uintptr
	Transmitfile    uintptr
	Getsockname     uintptr
	Getpeername     uintptr
	ReservedFn6     uintptr
	ReservedFn5     uintptr
	Getsocketoption uintptr
	Setsocketoption uintptr
	Sendfile        uintptr
	Connectcontinue uintptr
	ReservedFn3     uintptr
	ReservedFn2     uintptr
	ReservedFn1     uintptr
	ReservedFn0     uintptr
}

// A size mismatch would silently corrupt NSPR's dispatch, so fail the build
// if IOMethods ever drifts from the ABI constant.
var (
	_ [MethodTableSize - unsafe.Sizeof(IOMethods{})]byte
	_ [unsafe.Sizeof(IOMethods{}) - MethodTableSize]byte
)

// fillMethodTable populates a zeroed table for a layered descriptor that
// supports read, write, and getpeername. Every other slot stays null.
func fillMethodTable(m *IOMethods, read, write, getPeerName uintptr) {
	*m = IOMethods{}
	m.FileType = uintptr(DescTypeLayered)
	m.Read = read
	m.Write = write
	m.Getpeername = getPeerName
}

// newMethodTable allocates a method table in NSPR-owned memory and fills it.
// NSPR keeps the pointer for the descriptor's whole life, so the table cannot
// live on the Go heap; the owning FileDesc frees it on Close.
func newMethodTable(read, write, getPeerName uintptr) (*IOMethods, error) {
	mem := bindings.Malloc(MethodTableSize)
	if mem == nil {
		return nil, ErrOutOfMemory
	}
	m := (*IOMethods)(mem)
	fillMethodTable(m, read, write, getPeerName)
	return m, nil
}

func freeMethodTable(m *IOMethods) {
	if m == nil {
		return
	}
	bindings.Free(unsafe.Pointer(m))
}
