package coreio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenOptionsFlags(t *testing.T) {
	require.Equal(t, os.O_RDONLY, OpenOptions{Read: true}.flags())
	require.Equal(t, os.O_WRONLY, OpenOptions{Write: true}.flags())
	require.Equal(t, os.O_RDWR, OpenOptions{Read: true, Write: true}.flags())
	require.Equal(t, os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		OpenOptions{Write: true, Create: true, Truncate: true}.flags())
	require.Equal(t, os.O_WRONLY|os.O_CREATE|os.O_EXCL,
		OpenOptions{Write: true, CreateNew: true}.flags())
	require.Equal(t, os.O_RDONLY|os.O_APPEND,
		OpenOptions{Append: true}.flags())
}

func TestOpenOptionsPermOr(t *testing.T) {
	require.Equal(t, uint32(0o644), OpenOptions{}.permOr(0o644))
	require.Equal(t, uint32(0o600), OpenOptions{Perm: 0o600}.permOr(0o644))
}

func TestFileWriteAllAndReadRoundTrip(t *testing.T) {
	var readBack *Buffer
	runTask(t, Go(func(y *Yielder) {
		f, err := y.Open("/tmp/coreio-test", OpenOptions{Write: true, Create: true})
		require.NoError(t, err)

		buf := NewBuffer(5)
		buf.Append([]byte("hello"))
		require.NoError(t, f.WriteAll(buf))

		readBuf := NewBuffer(5)
		readBack, err = f.Read(readBuf)
		require.NoError(t, err)

		require.NoError(t, f.Close())
	}))
	require.NotNil(t, readBack)
}

func TestFilePReadUsesExplicitOffset(t *testing.T) {
	fd := &fakeDriver{}
	var sawOffset int64 = -1
	task := Go(func(y *Yielder) {
		f, err := y.Open("/tmp/coreio-test", OpenOptions{Read: true})
		require.NoError(t, err)
		buf := NewBuffer(4)
		_, err = f.PRead(buf, 8)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})
	for {
		intent, more := task.Step()
		if !more {
			break
		}
		if intent.Tag == TagFilePRead {
			sawOffset = intent.Offset
		}
		_, err := fd.Submit(task, intent)
		require.NoError(t, err)
		fd.outstanding = nil
	}
	require.Equal(t, int64(8), sawOffset)
}
