package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/internal/repository"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

const serviceName = "hls"

// ErrInvalidRequest marks caller input the service refuses before doing any work.
var ErrInvalidRequest = errors.New("invalid request")

// Upper bounds of a single import. Larger values are refused rather than clamped.
const (
	MaxImportTimeout  = 24 * time.Hour
	MaxImportBudgetKB = int64(1 << 30) // 1 TiB
)

type StreamingService interface {
	// Serialized rebuilds, errors returned to the caller
	RebuildMasterPlaylist(ctx context.Context, videoID string) (*model.StreamingPlaylist, error)
	RebuildSegmentsSha256(ctx context.Context, videoID string) (*model.StreamingPlaylist, error)
	RebuildAll(ctx context.Context, videoID string) (*model.StreamingPlaylist, error)

	// Best-effort rebuild after transcoding, failures only logged
	OnTranscodingFinished(ctx context.Context, videoID string)

	// Remote asset ingestion
	ImportPlaylist(ctx context.Context, req ImportRequest) (*hls.ImportResult, error)
}

type ImportRequest struct {
	MasterURL   string
	Destination string
	Timeout     time.Duration
	BudgetKB    int64
}

type Builder interface {
	Build(ctx context.Context, v *model.Video) error
}

type Importer interface {
	Import(ctx context.Context, masterURL, destinationDir string, timeout time.Duration, budgetKB int64) (*hls.ImportResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, task hls.Task) error
}

// Notifier publishes the outcome of HLS operations.
type Notifier interface {
	SendSuccessNotification(videoID, serviceName, description string) error
	SendErrorNotification(videoID, serviceName, description string) error
}

type Options struct {
	ImportRoot      string
	DefaultTimeout  time.Duration
	DefaultBudgetKB int64
}

type streamingService struct {
	repo      repository.StreamingRepository
	master    Builder
	integrity Builder
	importer  Importer
	queue     Queue
	notifier  Notifier
	opts      Options
}

func NewStreamingService(repo repository.StreamingRepository, master, integrity Builder, importer Importer, queue Queue, notifier Notifier, opts Options) StreamingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &streamingService{
		repo:      repo,
		master:    master,
		integrity: integrity,
		importer:  importer,
		queue:     queue,
		notifier:  notifier,
		opts:      opts,
	}
}

func (s *streamingService) RebuildMasterPlaylist(ctx context.Context, videoID string) (*model.StreamingPlaylist, error) {
	return s.rebuild(ctx, "rebuild_master", videoID, s.master)
}

func (s *streamingService) RebuildSegmentsSha256(ctx context.Context, videoID string) (*model.StreamingPlaylist, error) {
	return s.rebuild(ctx, "rebuild_segments_sha256", videoID, s.integrity)
}

func (s *streamingService) RebuildAll(ctx context.Context, videoID string) (*model.StreamingPlaylist, error) {
	return s.rebuild(ctx, "rebuild_all", videoID, s.master, s.integrity)
}

// rebuild loads the video inside the queued task so every builder sees the state
// left by the previous mutation.
func (s *streamingService) rebuild(ctx context.Context, operation, videoID string, builders ...Builder) (*model.StreamingPlaylist, error) {
	start := time.Now()

	if videoID == "" {
		err := fmt.Errorf("videoID cannot be empty: %w", ErrInvalidRequest)
		logger.Logger.Error("Invalid video ID for rebuild", "operation", operation)
		return nil, err
	}

	var playlist *model.StreamingPlaylist
	err := s.queue.Enqueue(ctx, func(ctx context.Context) error {
		video, err := s.repo.GetVideo(ctx, videoID)
		if err != nil {
			return err
		}
		for _, b := range builders {
			if err := b.Build(ctx, video); err != nil {
				return err
			}
		}
		playlist = video.Playlist
		return nil
	})

	logger.LogPlaylistOperation(ctx, operation, videoID, "", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *streamingService) OnTranscodingFinished(ctx context.Context, videoID string) {
	if _, err := s.RebuildAll(ctx, videoID); err != nil {
		logger.WithContext(ctx).Warn("Best-effort HLS rebuild failed, previous artifacts stay in place",
			"video_id", videoID,
			"error", err.Error(),
		)
		s.notify(videoID, err, "")
		return
	}
	s.notify(videoID, nil, "HLS master playlist and segments sha256 rebuilt")
}

func (s *streamingService) ImportPlaylist(ctx context.Context, req ImportRequest) (*hls.ImportResult, error) {
	if req.MasterURL == "" {
		return nil, fmt.Errorf("master url cannot be empty: %w", ErrInvalidRequest)
	}
	if !strings.HasPrefix(req.MasterURL, "http://") && !strings.HasPrefix(req.MasterURL, "https://") {
		return nil, fmt.Errorf("master url must be http or https: %w", ErrInvalidRequest)
	}

	dest, err := s.destination(req.Destination)
	if err != nil {
		return nil, err
	}
	if req.Timeout > MaxImportTimeout {
		return nil, fmt.Errorf("timeout above %s: %w", MaxImportTimeout, ErrInvalidRequest)
	}
	if req.BudgetKB > MaxImportBudgetKB {
		return nil, fmt.Errorf("budget above %d KB: %w", MaxImportBudgetKB, ErrInvalidRequest)
	}
	if req.Timeout <= 0 {
		req.Timeout = s.opts.DefaultTimeout
	}
	if req.BudgetKB <= 0 {
		req.BudgetKB = s.opts.DefaultBudgetKB
	}

	logger.WithContext(ctx).Info("Starting playlist import",
		"master_url", req.MasterURL,
		"destination", dest,
		"timeout_ms", req.Timeout.Milliseconds(),
		"budget_kb", req.BudgetKB,
	)

	res, err := s.importer.Import(ctx, req.MasterURL, dest, req.Timeout, req.BudgetKB)
	if err != nil {
		s.notify("", err, "")
		return nil, err
	}
	s.notify("", nil, fmt.Sprintf("imported %d files from %s", len(res.Files), req.MasterURL))
	return res, nil
}

// destination confines an import target to the import root.
func (s *streamingService) destination(rel string) (string, error) {
	rel = filepath.Clean("/" + rel)
	if rel == "/" {
		return "", fmt.Errorf("destination cannot be empty: %w", ErrInvalidRequest)
	}
	return filepath.Join(s.opts.ImportRoot, rel), nil
}

func (s *streamingService) notify(videoID string, opErr error, description string) {
	var err error
	if opErr != nil {
		err = s.notifier.SendErrorNotification(videoID, serviceName, opErr.Error())
	} else {
		err = s.notifier.SendSuccessNotification(videoID, serviceName, description)
	}
	if err != nil {
		logger.Logger.Warn("Failed to publish notification",
			"video_id", videoID,
			"error", err.Error(),
		)
	}
}

type nopNotifier struct{}

func (nopNotifier) SendSuccessNotification(string, string, string) error { return nil }
func (nopNotifier) SendErrorNotification(string, string, string) error   { return nil }
