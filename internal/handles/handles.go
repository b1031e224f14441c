// Package handles maps synthetic native file descriptors to the Go objects
// that own them.
//
// NSPR's read, write, and getpeername method signatures carry no user-context
// pointer, so a C-callable trampoline cannot be handed its owning Go object
// directly. Instead the owner registers itself here and receives a handle
// that doubles as the osfd passed to PR_AllocFileDesc; when NSPR calls back,
// the trampoline translates the descriptor to its native handle and looks the
// owner up again.
package handles

import (
	"fmt"
	"sync"
)

// Registry issues native handles and maps them back to their owners.
// The zero value is ready to use.
type Registry struct {
	mu     sync.RWMutex
	owners map[int32]any
	next   int32
}

// Register stores owner and returns a fresh handle. Handles start at 1 and
// strictly increase for the life of the registry; they are never reused,
// even after Unregister.
//
// Thread-safe.
func (r *Registry) Register(owner any) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners == nil {
		r.owners = make(map[int32]any)
		r.next = 1
	}
	h := r.next
	r.next++
	r.owners[h] = owner
	return h
}

// Lookup retrieves the owner of a handle.
// Returns nil if the handle is not registered.
//
// Thread-safe.
func (r *Registry) Lookup(h int32) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owners[h]
}

// MustLookup retrieves the owner of a handle, panicking if the handle was
// never registered or has been unregistered. A miss means this registry and
// NSPR's view of the descriptor have diverged; forwarding I/O to the wrong
// owner would be worse than crashing.
//
// Thread-safe.
func (r *Registry) MustLookup(h int32) any {
	v := r.Lookup(h)
	if v == nil {
		panic(fmt.Sprintf("handles: no owner registered for native handle %d", h))
	}
	return v
}

// Unregister removes a handle. The handle number is retired, not recycled.
// Should be called when NSPR no longer holds a descriptor for the owner.
//
// Thread-safe.
func (r *Registry) Unregister(h int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, h)
}

// Count returns the number of currently registered handles.
// Useful for debugging and testing leaks.
//
// Thread-safe.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// Default is the process-wide registry for descriptors handed to NSPR.
// Descriptors created through different registries must never share a
// process, since NSPR sees only the handle number.
var Default Registry

// Register stores owner in the Default registry.
func Register(owner any) int32 {
	return Default.Register(owner)
}

// Lookup retrieves an owner from the Default registry.
func Lookup(h int32) any {
	return Default.Lookup(h)
}

// MustLookup retrieves an owner from the Default registry, panicking on a miss.
func MustLookup(h int32) any {
	return Default.MustLookup(h)
}

// Unregister removes a handle from the Default registry.
func Unregister(h int32) {
	Default.Unregister(h)
}

// Count returns the number of handles in the Default registry.
func Count() int {
	return Default.Count()
}
