package hls

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/lumbrjx/codek7/streaming/internal/model"
)

// memStore keeps artifacts in memory and hands out "https://cdn.test/<uuid>/<name>" URLs.
type memStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	removed  []string
	storeErr error
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.files[filename] = append([]byte(nil), content...)
	return "https://cdn.test/" + p.VideoUUID + "/" + filename, nil
}

func (s *memStore) Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	s.removed = append(s.removed, filename)
	return nil
}

func (s *memStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *memStore) content(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[name]
}

// dirFiles serves video files and resolution playlists from a flat directory.
type dirFiles struct {
	dir string
}

func (d dirFiles) WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return fn(filepath.Join(d.dir, f.Filename))
}

func (d dirFiles) WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	return fn(filepath.Join(d.dir, ResolutionPlaylistFilename(f.Filename)))
}

// mapProber answers by file basename.
type mapProber map[string]ProbeResult

func (m mapProber) Probe(ctx context.Context, path string) (ProbeResult, error) {
	res, ok := m[filepath.Base(path)]
	if !ok {
		return ProbeResult{}, fmt.Errorf("no media stream in %s", path)
	}
	return res, nil
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []model.StreamingPlaylist
	err   error
}

func (s *recordingSaver) SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *p)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

var errSaveFailed = errors.New("connection reset by peer")

func newVideo(files ...*model.VideoFile) *model.Video {
	return &model.Video{
		ID:       "42",
		UUID:     "0b9d4cb5-6e4e-4bd8-9d0c-2f6f6ea1c0de",
		Duration: 10,
		Playlist: &model.StreamingPlaylist{
			ID:              1,
			VideoID:         "42",
			VideoUUID:       "0b9d4cb5-6e4e-4bd8-9d0c-2f6f6ea1c0de",
			StorageLocation: model.StorageLocal,
		},
		Files: files,
	}
}

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
