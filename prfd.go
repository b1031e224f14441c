//go:build !ios && !android && (amd64 || arm64)

// Package prfd creates synthetic "layered" NSPR file descriptors whose read,
// write, and getpeername operations are served by Go callbacks instead of the
// OS. It binds libnspr4 with purego (no CGO), which lets tests drive protocol
// code that expects real PRFileDesc objects, such as an NSS TLS stack,
// without opening a single socket.
//
// A FileDesc carries a PRIOMethods table with only four slots populated: the
// descriptor type tag ("layered"), read, write, and getpeername. Every other
// slot stays null, so NSPR treats those operations as unsupported. Calls like
// PR_Read enter NSPR, which dispatches through the table back into this
// package's trampolines; the trampoline recovers the owning FileDesc from the
// descriptor's native handle and runs the user callback.
//
// Construction is two-phase: New registers the descriptor with NSPR, and
// SetCallbacks assigns behavior afterwards. Read and Write fail with a
// precondition error while the matching callback is unset.
package prfd

import "github.com/nsprtest/prfd/internal/bindings"

// Init loads libnspr4 and initializes the NSPR runtime. It is called
// automatically by New, but can be called explicitly to check for errors.
// It is safe to call multiple times.
func Init() error {
	if err := bindings.Load(); err != nil {
		return err
	}
	bindings.Initialize()
	return nil
}

// IsLoaded returns true if libnspr4 has been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// VersionCheck reports whether the loaded NSPR is compatible with the given
// version string, e.g. "4.35".
func VersionCheck(version string) bool {
	return bindings.VersionCheck(version)
}

// FindLibrary returns the path libnspr4 would be loaded from, for
// diagnostics.
func FindLibrary() (string, error) {
	return bindings.FindLibrary()
}
