package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

const streamingPlaylistsPrefix = "streaming-playlists/hls"

// ObjectClient is the part of MinioClient the HLS stores rely on.
type ObjectClient interface {
	Upload(ctx context.Context, objectKey string, content []byte) error
	DownloadToFile(ctx context.Context, objectKey, path string) error
	Remove(ctx context.Context, objectKey string) error
	URL(objectKey string) string
}

// ObjectStore keeps HLS files of a playlist under
// "streaming-playlists/hls/<video uuid>/" in the bucket.
type ObjectStore struct {
	client ObjectClient
	tmpDir string
}

func NewObjectStore(client ObjectClient, tmpDir string) *ObjectStore {
	return &ObjectStore{client: client, tmpDir: tmpDir}
}

func ObjectKey(p *model.StreamingPlaylist, filename string) string {
	return path.Join(streamingPlaylistsPrefix, p.VideoUUID, filename)
}

func (s *ObjectStore) Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error) {
	key := ObjectKey(p, filename)
	if err := s.client.Upload(ctx, key, content); err != nil {
		return "", err
	}
	return s.client.URL(key), nil
}

func (s *ObjectStore) Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error {
	start := time.Now()
	key := ObjectKey(p, filename)
	err := s.client.Remove(ctx, key)
	logger.LogStorageOperation(ctx, "remove", key, 0, time.Since(start), err)
	return err
}

func (s *ObjectStore) WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return s.withLocalCopy(ctx, p, f.Filename, fn)
}

func (s *ObjectStore) WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return s.withLocalCopy(ctx, p, hls.ResolutionPlaylistFilename(f.Filename), fn)
}

// withLocalCopy downloads the object to a private temp directory that is removed
// once fn returns.
func (s *ObjectStore) withLocalCopy(ctx context.Context, p *model.StreamingPlaylist, filename string, fn func(path string) error) error {
	start := time.Now()

	dir, err := os.MkdirTemp(s.tmpDir, "hls-object-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Logger.Warn("Failed to remove temporary copy",
				"path", dir,
				"error", err.Error(),
			)
		}
	}()

	key := ObjectKey(p, filename)
	local := filepath.Join(dir, filename)
	err = s.client.DownloadToFile(ctx, key, local)
	logger.LogStorageOperation(ctx, "download_to_file", key, 0, time.Since(start), err)
	if err != nil {
		return err
	}

	return fn(local)
}
