//go:build !ios && !android && (amd64 || arm64)

// Package bindings handles loading the NSPR shared library (libnspr4) and
// registering function bindings using purego.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// ErrNotLoaded is returned when NSPR functions are called before Load().
var ErrNotLoaded = errors.New("prfd: NSPR library not loaded; call prfd.Init() first")

// ErrLibraryNotFound is returned when libnspr4 cannot be found.
var ErrLibraryNotFound = errors.New("prfd: NSPR library not found")

var (
	libNSPR uintptr

	loaded   bool
	loadOnce sync.Once
	loadErr  error
)

// Function bindings - registered when Load() succeeds.
var (
	// Layered descriptor plumbing (private pprio.h API).
	prAllocFileDesc         func(osfd int32, methods unsafe.Pointer) unsafe.Pointer
	prFreeFileDesc          func(fd unsafe.Pointer)
	prFileDesc2NativeHandle func(fd unsafe.Pointer) int32

	// I/O entry points (prio.h).
	prRead        func(fd, buf unsafe.Pointer, amount int32) int32
	prWrite       func(fd, buf unsafe.Pointer, amount int32) int32
	prGetPeerName func(fd, addr unsafe.Pointer) int32

	// Memory (prmem.h). Method tables live in NSPR-owned memory so the
	// runtime never holds a Go pointer it could outlive.
	prMalloc func(size uint32) unsafe.Pointer
	prFree   func(ptr unsafe.Pointer)

	// Runtime init and diagnostics.
	prInit         func(threadType, priority int32, maxPTDs uint32)
	prInitialized  func() int32
	prVersionCheck func(importedVersion string) int32
	prGetError     func() int32
	prGetOSError   func() int32
	prErrorToName  func(code int32) string
	prSetLogFile   func(name string) int32
)

// PR_Init arguments: user thread at normal priority (prthread.h).
const (
	prUserThread     int32 = 0
	prPriorityNormal int32 = 1
)

// IsLoaded returns true if libnspr4 has been successfully loaded.
func IsLoaded() bool {
	return loaded
}

// Load loads libnspr4 and registers all function bindings.
// It is safe to call multiple times; subsequent calls are no-ops.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

func doLoad() error {
	var err error
	libNSPR, err = loadLibrary()
	if err != nil {
		return fmt.Errorf("loading libnspr4: %w", err)
	}

	purego.RegisterLibFunc(&prAllocFileDesc, libNSPR, "PR_AllocFileDesc")
	purego.RegisterLibFunc(&prFreeFileDesc, libNSPR, "PR_FreeFileDesc")
	purego.RegisterLibFunc(&prFileDesc2NativeHandle, libNSPR, "PR_FileDesc2NativeHandle")

	purego.RegisterLibFunc(&prRead, libNSPR, "PR_Read")
	purego.RegisterLibFunc(&prWrite, libNSPR, "PR_Write")
	purego.RegisterLibFunc(&prGetPeerName, libNSPR, "PR_GetPeerName")

	purego.RegisterLibFunc(&prMalloc, libNSPR, "PR_Malloc")
	purego.RegisterLibFunc(&prFree, libNSPR, "PR_Free")

	purego.RegisterLibFunc(&prInit, libNSPR, "PR_Init")
	purego.RegisterLibFunc(&prInitialized, libNSPR, "PR_Initialized")
	purego.RegisterLibFunc(&prVersionCheck, libNSPR, "PR_VersionCheck")
	purego.RegisterLibFunc(&prGetError, libNSPR, "PR_GetError")
	purego.RegisterLibFunc(&prGetOSError, libNSPR, "PR_GetOSError")
	purego.RegisterLibFunc(&prErrorToName, libNSPR, "PR_ErrorToName")
	purego.RegisterLibFunc(&prSetLogFile, libNSPR, "PR_SetLogFile")

	return nil
}

// loadLibrary attempts to load libnspr4 from the platform search paths.
func loadLibrary() (uintptr, error) {
	names := libraryNames()

	for _, searchPath := range LibrarySearchPaths() {
		for _, name := range names {
			lib, err := tryOpen(filepath.Join(searchPath, name))
			if err == nil {
				return lib, nil
			}
		}
	}

	// Let the system loader find it.
	for _, name := range names {
		lib, err := tryOpen(name)
		if err == nil {
			return lib, nil
		}
	}

	return 0, fmt.Errorf("%w: %v", ErrLibraryNotFound, names)
}

// libraryNames returns candidate file names for libnspr4.
func libraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libnspr4.dylib"}
	case "windows":
		return []string{"nspr4.dll", "libnspr4.dll"}
	default:
		return []string{"libnspr4.so"}
	}
}

// tryOpen attempts to open a library with RTLD_NOW | RTLD_GLOBAL.
// RTLD_GLOBAL matters when NSS is loaded alongside NSPR in the same process;
// its libraries resolve PR_* symbols through the global namespace.
func tryOpen(path string) (uintptr, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, err
	}
	return lib, nil
}

// LibrarySearchPaths returns platform-specific library search paths.
func LibrarySearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "linux":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
			"/lib/x86_64-linux-gnu",
			"/lib",
		)

	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",          // Apple Silicon
			"/usr/local/lib",             // Intel
			"/opt/homebrew/opt/nspr/lib", // Homebrew NSPR
			"/usr/local/opt/nspr/lib",    // Homebrew NSPR (Intel)
		)

	case "windows":
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}

	case "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/local/lib",
			"/usr/lib",
		)
	}

	return paths
}

// FindLibrary searches for libnspr4 and returns its full path.
// This is useful for diagnostics.
func FindLibrary() (string, error) {
	for _, searchPath := range LibrarySearchPaths() {
		for _, name := range libraryNames() {
			fullPath := filepath.Join(searchPath, name)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}
	return "", ErrLibraryNotFound
}

// Initialize makes sure the NSPR runtime is up. PR_Read and friends would
// implicitly initialize it anyway, but doing it eagerly keeps the first I/O
// call from paying the setup cost.
func Initialize() {
	if prInit == nil || prInitialized == nil {
		return
	}
	if prInitialized() == 0 {
		prInit(prUserThread, prPriorityNormal, 0)
	}
}

// Initialized returns true if the NSPR runtime has been initialized.
func Initialized() bool {
	if prInitialized == nil {
		return false
	}
	return prInitialized() != 0
}

// VersionCheck reports whether the loaded NSPR is compatible with the given
// version string, e.g. "4.35".
func VersionCheck(version string) bool {
	if prVersionCheck == nil {
		return false
	}
	return prVersionCheck(version) != 0
}

// AllocFileDesc wraps PR_AllocFileDesc: allocates a PRFileDesc bound to the
// given native handle and method table. Returns nil on failure.
func AllocFileDesc(osfd int32, methods unsafe.Pointer) unsafe.Pointer {
	if prAllocFileDesc == nil {
		return nil
	}
	return prAllocFileDesc(osfd, methods)
}

// FreeFileDesc wraps PR_FreeFileDesc. Safe to call with nil.
func FreeFileDesc(fd unsafe.Pointer) {
	if fd == nil || prFreeFileDesc == nil {
		return
	}
	prFreeFileDesc(fd)
}

// FileDescToNativeHandle wraps PR_FileDesc2NativeHandle, recovering the
// native handle a descriptor was allocated with.
func FileDescToNativeHandle(fd unsafe.Pointer) int32 {
	if prFileDesc2NativeHandle == nil {
		return -1
	}
	return prFileDesc2NativeHandle(fd)
}

// Read wraps PR_Read. Returns bytes read, 0 on EOF, or -1 on failure.
func Read(fd, buf unsafe.Pointer, amount int32) int32 {
	if prRead == nil {
		return -1
	}
	return prRead(fd, buf, amount)
}

// Write wraps PR_Write. Returns bytes written or -1 on failure.
func Write(fd, buf unsafe.Pointer, amount int32) int32 {
	if prWrite == nil {
		return -1
	}
	return prWrite(fd, buf, amount)
}

// GetPeerName wraps PR_GetPeerName. addr must point at a full PRNetAddr.
func GetPeerName(fd, addr unsafe.Pointer) int32 {
	if prGetPeerName == nil {
		return -1
	}
	return prGetPeerName(fd, addr)
}

// Malloc allocates memory using NSPR's allocator.
func Malloc(size uint32) unsafe.Pointer {
	if prMalloc == nil {
		return nil
	}
	return prMalloc(size)
}

// Free frees memory allocated by Malloc. Safe to call with nil.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || prFree == nil {
		return
	}
	prFree(ptr)
}

// GetError returns the calling thread's current PR error code.
func GetError() int32 {
	if prGetError == nil {
		return 0
	}
	return prGetError()
}

// GetOSError returns the OS-level error associated with the current PR error.
func GetOSError() int32 {
	if prGetOSError == nil {
		return 0
	}
	return prGetOSError()
}

// ErrorToName returns the symbolic name of a PR error code, e.g.
// "PR_WOULD_BLOCK_ERROR". Returns "" for codes NSPR does not know.
func ErrorToName(code int32) string {
	if prErrorToName == nil {
		return ""
	}
	return prErrorToName(code)
}

// SetLogFile wraps PR_SetLogFile.
func SetLogFile(name string) bool {
	if prSetLogFile == nil {
		return false
	}
	return prSetLogFile(name) != 0
}

// LibNSPR returns the libnspr4 library handle.
func LibNSPR() uintptr {
	return libNSPR
}
