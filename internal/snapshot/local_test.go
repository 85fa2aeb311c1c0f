package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocal_PutWritesFileAndReturnsURI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := s.Put(context.Background(), "pages/eventbrite/page-1.html", "text/html", []byte("<html>x</html>"))
	require.NoError(t, err)

	want := filepath.Join(dir, "pages", "eventbrite", "page-1.html")
	require.Equal(t, "file://"+want, uri)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, "<html>x</html>", string(data))
}

func TestLocal_PutRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.html", "text/html", []byte("x"))
	require.Error(t, err)
}

func TestLocal_PutRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "  ", "text/html", []byte("x"))
	require.Error(t, err)
}

func TestNewLocal_CreatesMissingBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "snapshots")
	_, err := NewLocal(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewLocal_RejectsEmptyAndNonDir(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = NewLocal(file)
	require.Error(t, err)
}

func TestNew_ProviderSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := zap.NewNop()

	s, err := New(ctx, Config{Provider: "none"}, logger)
	require.NoError(t, err)
	uri, err := s.Put(ctx, "anything", "text/html", []byte("x"))
	require.NoError(t, err)
	require.Empty(t, uri, "the noop backend discards pages")

	_, err = New(ctx, Config{Provider: "local", BaseDir: t.TempDir()}, logger)
	require.NoError(t, err)

	_, err = New(ctx, Config{Provider: "minio"}, logger)
	require.Error(t, err)
}
