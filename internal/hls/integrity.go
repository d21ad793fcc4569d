package hls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// IntegrityMap maps a rendition filename to the SHA-256 of every byte range its
// resolution playlist declares, keyed "start-end" (inclusive end).
type IntegrityMap map[string]map[string]string

const defaultHashConcurrency = 2

// IntegrityBuilder produces the segments SHA-256 document of a video.
type IntegrityBuilder struct {
	files       LocalFiles
	store       ArtifactStore
	saver       PlaylistSaver
	concurrency int
	newName     func() string
}

func NewIntegrityBuilder(files LocalFiles, store ArtifactStore, saver PlaylistSaver, concurrency int) *IntegrityBuilder {
	if concurrency <= 0 {
		concurrency = defaultHashConcurrency
	}
	return &IntegrityBuilder{
		files:       files,
		store:       store,
		saver:       saver,
		concurrency: concurrency,
		newName:     NewSegmentsSha256Filename,
	}
}

func (b *IntegrityBuilder) Build(ctx context.Context, v *model.Video) error {
	start := time.Now()
	if v.Playlist == nil {
		return errors.New("video has no streaming playlist")
	}

	m, err := b.Compute(ctx, v)
	if err != nil {
		logger.LogPlaylistOperation(ctx, "build_segments_sha256", v.ID, "", time.Since(start), err)
		return err
	}

	content, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal segments sha256: %w", err)
	}

	p := v.Playlist
	if p.P2PMediaLoaderPeerVersion < P2PMediaLoaderPeerVersion {
		p.P2PMediaLoaderPeerVersion = P2PMediaLoaderPeerVersion
	}

	name := b.newName()
	err = replaceArtifact(ctx, b.store, b.saver, p,
		artifactSlot{name: &p.SegmentsSha256Filename, url: &p.SegmentsSha256URL}, name, content)

	logger.LogPlaylistOperation(ctx, "build_segments_sha256", v.ID, name, time.Since(start), err)
	return err
}

// Compute hashes every declared range of every file. Files are processed concurrently.
func (b *IntegrityBuilder) Compute(ctx context.Context, v *model.Video) (IntegrityMap, error) {
	results := make([]map[string]string, len(v.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, f := range v.Files {
		g.Go(func() error {
			hashes, err := b.hashFile(gctx, v.Playlist, f)
			if err != nil {
				return fmt.Errorf("hash %s: %w", f.Filename, err)
			}
			results[i] = hashes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := make(IntegrityMap, len(v.Files))
	for i, f := range v.Files {
		m[f.Filename] = results[i]
	}
	return m, nil
}

func (b *IntegrityBuilder) hashFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile) (map[string]string, error) {
	var ranges []ByteRange
	err := b.files.WithResolutionPlaylist(ctx, p, f, func(path string) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		ranges = ExtractByteRanges(string(content))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read resolution playlist: %w", err)
	}

	hashes := make(map[string]string, len(ranges))
	if len(ranges) == 0 {
		logger.Logger.Debug("Resolution playlist declares no byte ranges",
			"video_id", p.VideoID,
			"filename", f.Filename,
		)
		return hashes, nil
	}

	err = b.files.WithVideoFile(ctx, p, f, func(path string) error {
		return hashRanges(ctx, path, ranges, hashes)
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

func hashRanges(ctx context.Context, path string, ranges []ByteRange, out map[string]string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		// lengths come from the playlist, check them before allocating
		if r.Offset < 0 || r.Length < 0 || r.Offset > size || r.Length > size-r.Offset {
			return fmt.Errorf("range %s is past the end of %s", r.Key(), path)
		}
		buf := make([]byte, r.Length)
		if _, err := fd.ReadAt(buf, r.Offset); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("range %s is past the end of %s", r.Key(), path)
			}
			return err
		}
		out[r.Key()] = Sha256Hex(buf)
	}
	return nil
}
