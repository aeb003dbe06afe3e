//go:build unix

package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/behrlich/coreio/internal/bufpool"
	"github.com/behrlich/coreio/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestFileWriteAllThenReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")

	openOut := &proto.Result{}
	Apply(proto.Intent{
		Tag:   proto.TagFileOpen,
		Path:  path,
		Flags: unix.O_CREAT | unix.O_RDWR | unix.O_TRUNC,
		Perm:  0o644,
		Out:   openOut,
	})
	require.NoError(t, openOut.Err)
	fd := openOut.Fd

	buf := bufpool.New(4)
	buf.Append([]byte("hello world"))
	writeOut := &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagFileWriteAll, Fd: fd, Buf: buf, Out: writeOut})
	require.NoError(t, writeOut.Err)
	require.Equal(t, 11, writeOut.N)

	closeOut := &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagFileClose, Fd: fd, Out: closeOut})
	require.NoError(t, closeOut.Err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestMkdirRmdirUnlinkRename(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")

	out := &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagMkdir, Path: sub, Perm: 0o755, Out: out})
	require.NoError(t, out.Err)

	info, err := os.Stat(sub)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	dst := filepath.Join(dir, "b.txt")

	out = &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagRename, Path: src, NewPath: dst, Out: out})
	require.NoError(t, out.Err)
	_, err = os.Stat(dst)
	require.NoError(t, err)

	out = &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagUnlink, Path: dst, Out: out})
	require.NoError(t, out.Err)

	out = &proto.Result{}
	Apply(proto.Intent{Tag: proto.TagRmdir, Path: sub, Out: out})
	require.NoError(t, out.Err)
}

func TestIsFileTag(t *testing.T) {
	require.True(t, IsFileTag(proto.TagFileRead))
	require.False(t, IsFileTag(proto.TagRead))
}
