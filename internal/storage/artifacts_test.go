package storage

import (
	"context"
	"testing"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactsDispatchesOnStorageLocation(t *testing.T) {
	client := newFakeObjectClient()
	root := t.TempDir()
	a := &Artifacts{
		Local:  NewLocalStore(root, "http://localhost:8080"),
		Object: NewObjectStore(client, t.TempDir()),
	}
	ctx := context.Background()

	localURL, err := a.Store(ctx, testPlaylist(model.StorageLocal), "m.m3u8", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, localURL, "http://localhost:8080/static/streaming-playlists/hls/")
	assert.Empty(t, client.objects)

	objectURL, err := a.Store(ctx, testPlaylist(model.StorageObject), "m.m3u8", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, objectURL, "https://s3.test/videos/streaming-playlists/hls/")
	assert.Len(t, client.objects, 1)
}

func TestArtifactsMissingBackend(t *testing.T) {
	a := &Artifacts{Local: NewLocalStore(t.TempDir(), "")}

	_, err := a.Store(context.Background(), testPlaylist(model.StorageObject), "m.m3u8", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object_storage")
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a-master.m3u8":          "application/vnd.apple.mpegurl",
		"seg.ts":                 "video/MP2T",
		"a-720-fragmented.mp4":   "video/mp4",
		"a-segments-sha256.json": "application/json",
		"en.vtt":                 "text/vtt",
		"blob.bin":               "application/octet-stream",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, ContentType(name))
		})
	}
}
