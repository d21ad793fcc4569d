package storage

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

// StaticStreamingPlaylistsPath is where the HTTP server exposes LocalStore files.
const StaticStreamingPlaylistsPath = "/static/streaming-playlists/hls"

// LocalStore keeps HLS files of a playlist under "<root>/<video uuid>/".
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Dir(p *model.StreamingPlaylist) string {
	return filepath.Join(s.root, p.VideoUUID)
}

func (s *LocalStore) URL(p *model.StreamingPlaylist, filename string) string {
	return s.baseURL + StaticStreamingPlaylistsPath + "/" + url.PathEscape(p.VideoUUID) + "/" + url.PathEscape(filename)
}

func (s *LocalStore) Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error) {
	if err := writeFileAtomic(s.Dir(p), filename, content); err != nil {
		return "", err
	}
	return s.URL(p, filename), nil
}

// Remove deletes filename; a file that is already gone is not an error.
func (s *LocalStore) Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error {
	start := time.Now()
	target := filepath.Join(s.Dir(p), filename)
	err := os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	logger.LogStorageOperation(ctx, "remove", target, 0, time.Since(start), err)
	return err
}

func (s *LocalStore) WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return fn(filepath.Join(s.Dir(p), f.Filename))
}

func (s *LocalStore) WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return fn(filepath.Join(s.Dir(p), hls.ResolutionPlaylistFilename(f.Filename)))
}
