package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlaylist(location model.StorageLocation) *model.StreamingPlaylist {
	return &model.StreamingPlaylist{
		ID:              7,
		VideoID:         "42",
		VideoUUID:       "b2a1c6c2-8f0e-4c53-a1a6-7f0e2f5b9d10",
		StorageLocation: location,
	}
}

func TestLocalStoreStoreAndRemove(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "https://videos.test/")
	p := testPlaylist(model.StorageLocal)
	ctx := context.Background()

	url, err := s.Store(ctx, p, "abc-master.m3u8", []byte("#EXTM3U\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://videos.test/static/streaming-playlists/hls/"+p.VideoUUID+"/abc-master.m3u8", url)

	got, err := os.ReadFile(filepath.Join(root, p.VideoUUID, "abc-master.m3u8"))
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", string(got))

	require.NoError(t, s.Remove(ctx, p, "abc-master.m3u8"))
	assert.NoFileExists(t, filepath.Join(root, p.VideoUUID, "abc-master.m3u8"))

	// already gone
	assert.NoError(t, s.Remove(ctx, p, "abc-master.m3u8"))
}

func TestLocalStoreLocalPaths(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "http://localhost:8080")
	p := testPlaylist(model.StorageLocal)
	f := &model.VideoFile{Filename: p.VideoUUID + "-720-fragmented.mp4"}
	ctx := context.Background()

	var videoPath, playlistPath string
	require.NoError(t, s.WithVideoFile(ctx, p, f, func(path string) error {
		videoPath = path
		return nil
	}))
	require.NoError(t, s.WithResolutionPlaylist(ctx, p, f, func(path string) error {
		playlistPath = path
		return nil
	}))

	assert.Equal(t, filepath.Join(root, p.VideoUUID, f.Filename), videoPath)
	assert.Equal(t, filepath.Join(root, p.VideoUUID, p.VideoUUID+"-720.m3u8"), playlistPath)
}

func TestWriteFileAtomicRenameFailureKeepsPreviousContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFileAtomic(dir, "map.json", []byte(`{"a":1}`)))

	renameFunc = func(oldpath, newpath string) error { return errors.New("read-only file system") }
	t.Cleanup(func() { renameFunc = os.Rename })

	err := writeFileAtomic(dir, "map.json", []byte(`{"a":2}`))
	require.Error(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "map.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}
