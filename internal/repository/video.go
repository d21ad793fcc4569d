package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

var ErrNotFound = errors.New("not found")

type StreamingRepository interface {
	// GetVideo loads a video with its streaming playlist, files and captions.
	GetVideo(ctx context.Context, videoID string) (*model.Video, error)
	SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error
}

type streamingRepo struct {
	db *pgxpool.Pool
}

func NewStreamingRepository(pool *pgxpool.Pool) StreamingRepository {
	return &streamingRepo{db: pool}
}

func (r *streamingRepo) GetVideo(ctx context.Context, videoID string) (*model.Video, error) {
	start := time.Now()

	query := `SELECT id, uuid, duration, created_at FROM videos WHERE id=$1`
	var v model.Video
	err := r.db.QueryRow(ctx, query, videoID).Scan(&v.ID, &v.UUID, &v.Duration, &v.CreatedAt)

	logger.LogDatabaseOperation(ctx, "select", "videos", time.Since(start), err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		logger.Logger.Warn("Failed to fetch video",
			"video_id", videoID,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("get video failed: %w", err)
	}

	if v.Playlist, err = r.getPlaylist(ctx, &v); err != nil {
		return nil, err
	}
	if v.Files, err = r.getFiles(ctx, videoID); err != nil {
		return nil, err
	}
	if v.Captions, err = r.getCaptions(ctx, videoID); err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *streamingRepo) getPlaylist(ctx context.Context, v *model.Video) (*model.StreamingPlaylist, error) {
	start := time.Now()

	query := `
SELECT id, video_id, playlist_filename, playlist_url, segments_sha256_filename,
       segments_sha256_url, storage_location, p2p_media_loader_peer_version,
       p2p_infohashes, updated_at
FROM video_streaming_playlists
WHERE video_id = $1
`
	var p model.StreamingPlaylist
	var playlistFilename, playlistURL, shaFilename, shaURL *string
	var location int
	err := r.db.QueryRow(ctx, query, v.ID).Scan(
		&p.ID, &p.VideoID, &playlistFilename, &playlistURL, &shaFilename,
		&shaURL, &location, &p.P2PMediaLoaderPeerVersion,
		&p.P2PInfoHashes, &p.UpdatedAt,
	)

	logger.LogDatabaseOperation(ctx, "select", "video_streaming_playlists", time.Since(start), err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("streaming playlist of video %s: %w", v.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("get streaming playlist failed: %w", err)
	}

	p.VideoUUID = v.UUID
	p.StorageLocation = model.StorageLocation(location)
	p.PlaylistFilename = deref(playlistFilename)
	p.PlaylistURL = deref(playlistURL)
	p.SegmentsSha256Filename = deref(shaFilename)
	p.SegmentsSha256URL = deref(shaURL)
	return &p, nil
}

func (r *streamingRepo) getFiles(ctx context.Context, videoID string) ([]*model.VideoFile, error) {
	start := time.Now()

	query := `SELECT id, video_id, resolution, fps, filename, size FROM video_files WHERE video_id=$1 ORDER BY resolution ASC`
	rows, err := r.db.Query(ctx, query, videoID)

	logger.LogDatabaseOperation(ctx, "select", "video_files", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("query video files failed: %w", err)
	}
	defer rows.Close()

	var files []*model.VideoFile
	for rows.Next() {
		var f model.VideoFile
		if err := rows.Scan(&f.ID, &f.VideoID, &f.Resolution, &f.FPS, &f.Filename, &f.Size); err != nil {
			logger.Logger.Error("Failed to scan video file row",
				"video_id", videoID,
				"error", err.Error(),
			)
			return nil, err
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

func (r *streamingRepo) getCaptions(ctx context.Context, videoID string) ([]*model.Caption, error) {
	start := time.Now()

	query := `SELECT language, filename FROM video_captions WHERE video_id=$1 ORDER BY language ASC`
	rows, err := r.db.Query(ctx, query, videoID)

	logger.LogDatabaseOperation(ctx, "select", "video_captions", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("query captions failed: %w", err)
	}
	defer rows.Close()

	var captions []*model.Caption
	for rows.Next() {
		var c model.Caption
		var filename *string
		if err := rows.Scan(&c.Language, &filename); err != nil {
			return nil, err
		}
		c.Filename = deref(filename)
		captions = append(captions, &c)
	}
	return captions, rows.Err()
}

func (r *streamingRepo) SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error {
	start := time.Now()

	hashes := p.P2PInfoHashes
	if hashes == nil {
		hashes = []string{}
	}

	query := `
UPDATE video_streaming_playlists
SET playlist_filename = $2, playlist_url = $3,
    segments_sha256_filename = $4, segments_sha256_url = $5,
    storage_location = $6, p2p_media_loader_peer_version = $7,
    p2p_infohashes = $8, updated_at = $9
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, query,
		p.ID, nullable(p.PlaylistFilename), nullable(p.PlaylistURL),
		nullable(p.SegmentsSha256Filename), nullable(p.SegmentsSha256URL),
		int(p.StorageLocation), p.P2PMediaLoaderPeerVersion,
		hashes, p.UpdatedAt,
	)

	logger.LogDatabaseOperation(ctx, "update", "video_streaming_playlists", time.Since(start), err)

	if err != nil {
		logger.Logger.Error("Failed to update streaming playlist",
			"video_id", p.VideoID,
			"error", err.Error(),
		)
		return fmt.Errorf("update streaming playlist failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("streaming playlist %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
