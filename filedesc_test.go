//go:build !ios && !android && (amd64 || arm64)

package prfd

import (
	"errors"
	"os"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/nsprtest/prfd/internal/handles"
)

var nsprAvailable bool

func TestMain(m *testing.M) {
	if err := Init(); err == nil {
		nsprAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoNSPR(t *testing.T) {
	t.Helper()
	if !nsprAvailable {
		t.Skip("NSPR not available")
	}
}

func TestNewRegistersHandle(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	assert.Assert(t, fd.Handle() >= 1, "handles start at 1, got %d", fd.Handle())
	assert.Equal(t, any(fd), handles.Lookup(fd.Handle()))
}

func TestNewAssignsDistinctHandles(t *testing.T) {
	skipIfNoNSPR(t)
	a, err := New()
	assert.NilError(t, err)
	defer a.Close()

	b, err := New()
	assert.NilError(t, err)
	defer b.Close()

	assert.Assert(t, b.Handle() > a.Handle(),
		"handles must strictly increase: %d then %d", a.Handle(), b.Handle())
}

func TestReadRoundTrip(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	fd.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) {
			for i := range p {
				p[i] = byte(i)
			}
			return len(p), nil
		},
	})

	got, err := fd.Read(10)
	assert.NilError(t, err)
	assert.DeepEqual(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestReadShort(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	fd.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) {
			copy(p, "abc")
			return 3, nil
		},
	})

	got, err := fd.Read(32)
	assert.NilError(t, err)
	assert.DeepEqual(t, []byte("abc"), got)
}

func TestWriteEcho(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	var observed []byte
	fd.SetCallbacks(&IOCallbacks{
		Write: func(p []byte) (int, error) {
			observed = append([]byte(nil), p...)
			return len(p), nil
		},
	})

	msg := []byte("hello world!")
	echo, err := fd.Write(msg)
	assert.NilError(t, err)
	assert.DeepEqual(t, msg, echo)
	assert.Equal(t, 12, len(observed))
	assert.DeepEqual(t, msg, observed)
}

func TestDescriptorsRouteIndependently(t *testing.T) {
	skipIfNoNSPR(t)
	client, err := New()
	assert.NilError(t, err)
	defer client.Close()

	server, err := New()
	assert.NilError(t, err)
	defer server.Close()

	client.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) {
			copy(p, "client")
			return 6, nil
		},
	})
	server.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) {
			copy(p, "server")
			return 6, nil
		},
	})

	fromClient, err := client.Read(6)
	assert.NilError(t, err)
	fromServer, err := server.Read(6)
	assert.NilError(t, err)

	assert.DeepEqual(t, []byte("client"), fromClient)
	assert.DeepEqual(t, []byte("server"), fromServer)
}

func TestGetPeerNameStub(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	assert.Assert(t, fd.GetPeerName())

	addr, ok := fd.PeerName()
	assert.Assert(t, ok)
	assert.Equal(t, NetAddrSize, len(addr))
	assert.DeepEqual(t, make([]byte, NetAddrSize), addr)
}

func TestReadRequiresCallback(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	_, err = fd.Read(8)
	assert.ErrorIs(t, err, ErrNoReadCallback)
}

func TestWriteRequiresCallback(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	// A read callback alone does not satisfy Write.
	fd.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) { return 0, nil },
	})

	_, err = fd.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNoWriteCallback)
}

func TestCallbackFailurePropagates(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	fd.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) {
			return 0, errors.New("nothing to produce")
		},
	})

	_, err = fd.Read(8)
	assert.Assert(t, err != nil, "a failing callback must surface as an error")
	assert.Assert(t, !errors.Is(err, ErrNoReadCallback))
}

func TestZeroSizeRead(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)
	defer fd.Close()

	fd.SetCallbacks(&IOCallbacks{
		Read: func(p []byte) (int, error) { return len(p), nil },
	})

	got, err := fd.Read(0)
	assert.NilError(t, err)
	assert.Equal(t, 0, len(got))
}

func TestCloseRetiresHandle(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)

	h := fd.Handle()
	assert.NilError(t, fd.Close())
	assert.Assert(t, handles.Lookup(h) == nil, "handle must leave the registry on Close")

	// Double close is a no-op.
	assert.NilError(t, fd.Close())
}

func TestOperationsAfterClose(t *testing.T) {
	skipIfNoNSPR(t)
	fd, err := New()
	assert.NilError(t, err)

	fd.SetCallbacks(&IOCallbacks{
		Read:  func(p []byte) (int, error) { return len(p), nil },
		Write: func(p []byte) (int, error) { return len(p), nil },
	})
	assert.NilError(t, fd.Close())

	_, err = fd.Read(4)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = fd.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Assert(t, !fd.GetPeerName())
}

func TestVersionCheck(t *testing.T) {
	skipIfNoNSPR(t)
	// Every NSPR 4.x is compatible with its own major version.
	assert.Assert(t, VersionCheck("4.0"))
}
