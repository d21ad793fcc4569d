// Package hls builds the HLS artifacts of a video (master manifest and the
// segments SHA-256 map used by the P2P media loader), serializes their mutation
// and imports remote HLS assets.
package hls

import (
	"context"

	"github.com/lumbrjx/codek7/streaming/internal/model"
)

// ProbeResult is what the master manifest needs to know about a media file.
type ProbeResult struct {
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
}

func (p ProbeResult) HasPicture() bool {
	return p.Width > 0 && p.Height > 0
}

type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// LocalFiles guarantees a readable local path for the duration of fn, whatever
// backs the file. Temporary copies are released when fn returns.
type LocalFiles interface {
	WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error
	WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error
}

// ArtifactStore persists playlist-level artifacts and returns their public URL.
type ArtifactStore interface {
	Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error)
	Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error
}

type PlaylistSaver interface {
	SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error
}
