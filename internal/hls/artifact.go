package hls

import (
	"context"
	"fmt"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

// artifactSlot is one replaceable artifact of a streaming playlist.
type artifactSlot struct {
	name *string
	url  *string
}

// replaceArtifact writes content under a fresh name, records it on the playlist,
// persists the playlist and only then removes the previous artifact. A failed
// write or save leaves the previous artifact authoritative.
func replaceArtifact(ctx context.Context, store ArtifactStore, saver PlaylistSaver, p *model.StreamingPlaylist, slot artifactSlot, newName string, content []byte) error {
	start := time.Now()
	oldName, oldURL := *slot.name, *slot.url

	url, err := store.Store(ctx, p, newName, content)
	if err != nil {
		logger.LogStorageOperation(ctx, "store_artifact", newName, int64(len(content)), time.Since(start), err)
		return fmt.Errorf("%w: %s: %v", ErrStorageWrite, newName, err)
	}

	*slot.name, *slot.url = newName, url
	p.UpdatedAt = time.Now()

	if err := saver.SavePlaylist(ctx, p); err != nil {
		*slot.name, *slot.url = oldName, oldURL
		if rmErr := store.Remove(ctx, p, newName); rmErr != nil {
			logger.Logger.Warn("Failed to remove orphaned artifact after playlist save error",
				"video_id", p.VideoID,
				"filename", newName,
				"error", rmErr.Error(),
			)
		}
		return fmt.Errorf("save streaming playlist: %w", err)
	}

	logger.LogStorageOperation(ctx, "store_artifact", newName, int64(len(content)), time.Since(start), nil)

	if oldName != "" && oldName != newName {
		if err := store.Remove(ctx, p, oldName); err != nil {
			logger.Logger.Warn("Failed to remove previous artifact",
				"video_id", p.VideoID,
				"filename", oldName,
				"error", err.Error(),
			)
		}
	}

	return nil
}
