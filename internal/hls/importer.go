package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ImportState is the progress of an import job.
type ImportState int

const (
	ImportStart ImportState = iota
	ImportFetchMaster
	ImportFetchVariants
	ImportFetchSegments
	ImportPublish
	ImportFailed
)

func (s ImportState) String() string {
	switch s {
	case ImportStart:
		return "start"
	case ImportFetchMaster:
		return "fetch_master"
	case ImportFetchVariants:
		return "fetch_variants"
	case ImportFetchSegments:
		return "fetch_segments"
	case ImportPublish:
		return "publish"
	case ImportFailed:
		return "failed"
	}
	return "unknown"
}

const defaultDownloadConcurrency = 4

// assets outside the master playlist's directory are stored under this directory
const externalDir = "_external"

// swapped in tests to simulate publication failures
var renameFunc = os.Rename

type ImportResult struct {
	JobID string
	// Files are the slash separated paths, relative to the destination directory,
	// of the published assets.
	Files []string
	Bytes int64
}

// ImportJob is the transient state of one Import call.
type ImportJob struct {
	ID        string
	MasterURL string
	Staging   string
	Deadline  time.Time

	base      *url.URL
	baseDir   string
	state     ImportState
	initial   int64
	remaining atomic.Int64
	seen      map[string]struct{}
	order     []string
}

// Importer downloads remote HLS assets.
type Importer struct {
	client      *http.Client
	concurrency int
}

func NewImporter(client *http.Client, concurrency int) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	if concurrency <= 0 {
		concurrency = defaultDownloadConcurrency
	}
	return &Importer{client: client, concurrency: concurrency}
}

// Import downloads the master playlist at masterURL, its variant playlists and
// their segments into destinationDir. On any failure destinationDir is left as it
// was. Variant playlists are scanned one level deep only.
func (im *Importer) Import(ctx context.Context, masterURL, destinationDir string, timeout time.Duration, budgetKB int64) (*ImportResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job := &ImportJob{
		ID:        uuid.NewString(),
		MasterURL: masterURL,
		Deadline:  start.Add(timeout),
		seen:      make(map[string]struct{}),
	}
	if budgetKB > math.MaxInt64/1024 {
		budgetKB = math.MaxInt64 / 1024
	}
	job.initial = budgetKB * 1024
	job.remaining.Store(job.initial)

	result, err := im.run(ctx, job, destinationDir)
	if err != nil {
		job.setState(ImportFailed)
		err = classifyImportError(ctx, err)
	}

	var files int
	var bytes int64
	if result != nil {
		files, bytes = len(result.Files), result.Bytes
	}
	logger.LogImportOperation(ctx, job.ID, masterURL, files, bytes, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (im *Importer) run(ctx context.Context, job *ImportJob, destinationDir string) (*ImportResult, error) {
	if err := job.resolveBase(); err != nil {
		return nil, err
	}

	destinationDir = filepath.Clean(destinationDir)
	if err := os.MkdirAll(filepath.Dir(destinationDir), 0o755); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(filepath.Dir(destinationDir), ".import-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	job.Staging = staging
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(staging)
		}
	}()

	job.setState(ImportFetchMaster)
	masterRel, err := job.localPath(job.MasterURL)
	if err != nil {
		return nil, err
	}
	job.markSeen(masterRel)
	masterBody, err := im.fetchPlaylist(ctx, job, job.MasterURL, masterRel)
	if err != nil {
		return nil, err
	}
	variantURLs, err := ExtractPlaylistURLs(job.MasterURL, string(masterBody))
	if err != nil {
		return nil, err
	}

	job.setState(ImportFetchVariants)
	var segmentURLs []string
	for _, u := range variantURLs {
		if !isPlaylistURL(u) {
			segmentURLs = append(segmentURLs, u)
			continue
		}
		rel, err := job.localPath(u)
		if err != nil {
			return nil, err
		}
		if !job.markSeen(rel) {
			continue
		}
		body, err := im.fetchPlaylist(ctx, job, u, rel)
		if err != nil {
			return nil, err
		}
		urls, err := ExtractPlaylistURLs(u, string(body))
		if err != nil {
			return nil, err
		}
		segmentURLs = append(segmentURLs, urls...)
	}

	job.setState(ImportFetchSegments)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for _, u := range segmentURLs {
		rel, err := job.localPath(u)
		if err != nil {
			return nil, err
		}
		if !job.markSeen(rel) {
			continue
		}
		g.Go(func() error {
			return im.download(gctx, job, u, rel)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	job.setState(ImportPublish)
	if err := publish(staging, destinationDir); err != nil {
		return nil, fmt.Errorf("publish import: %w", err)
	}
	published = true

	return &ImportResult{
		JobID: job.ID,
		Files: job.order,
		Bytes: job.Downloaded(),
	}, nil
}

func (j *ImportJob) setState(s ImportState) {
	j.state = s
	logger.Logger.Debug("Import state changed",
		"job_id", j.ID,
		"state", s.String(),
	)
}

func (j *ImportJob) State() ImportState { return j.state }

// markSeen records the local path rel and reports whether it was new. Two URLs
// that map to the same file are downloaded once.
func (j *ImportJob) markSeen(rel string) bool {
	if _, ok := j.seen[rel]; ok {
		return false
	}
	j.seen[rel] = struct{}{}
	j.order = append(j.order, rel)
	return true
}

// resolveBase records the master playlist's directory, the root of the local layout.
func (j *ImportJob) resolveBase() error {
	base, err := url.Parse(j.MasterURL)
	if err != nil {
		return fmt.Errorf("parse master url: %w", err)
	}
	j.base = base
	j.baseDir = path.Dir(path.Clean("/" + base.Path))
	if !strings.HasSuffix(j.baseDir, "/") {
		j.baseDir += "/"
	}
	return nil
}

// localPath maps an asset URL to a slash separated path under the staging
// directory. Assets below the master playlist's directory keep their relative
// layout. Anything else, another host or a reference climbing out with "..",
// goes under _external/<host>/ and can never leave staging.
func (j *ImportJob) localPath(u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrImportNetwork, u, err)
	}
	p := path.Clean("/" + parsed.Path)

	var rel string
	if parsed.Scheme == j.base.Scheme && parsed.Host == j.base.Host && strings.HasPrefix(p, j.baseDir) {
		rel = strings.TrimPrefix(p, j.baseDir)
	} else {
		host := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(parsed.Host)
		if host == "" || host == "." || host == ".." {
			host = "_"
		}
		rel = path.Join(externalDir, host, p)
	}

	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" {
		return "", fmt.Errorf("%w: %s does not name a file", ErrImportNetwork, u)
	}
	return rel, nil
}

// Downloaded is the number of bytes charged to the budget so far.
func (j *ImportJob) Downloaded() int64 {
	return j.initial - j.remaining.Load()
}

// fetchPlaylist downloads a playlist into staging and returns its content.
func (im *Importer) fetchPlaylist(ctx context.Context, job *ImportJob, u, rel string) ([]byte, error) {
	if err := im.download(ctx, job, u, rel); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(job.Staging, filepath.FromSlash(rel)))
}

// download stores u at rel inside the staging directory.
func (im *Importer) download(ctx context.Context, job *ImportJob, u, rel string) error {
	limit := job.remaining.Load()
	if limit <= 0 {
		return ErrImportBudgetExceeded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImportNetwork, err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrImportNetwork, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: GET %s: status %d", ErrImportNetwork, u, resp.StatusCode)
	}

	target := filepath.Join(job.Staging, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, io.LimitReader(resp.Body, limit+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: read %s: %v", ErrImportNetwork, u, err)
	}

	if job.remaining.Add(-n) < 0 {
		return fmt.Errorf("%w: %s", ErrImportBudgetExceeded, u)
	}
	return nil
}

// ExtractPlaylistURLs returns the unique .m3u8 and .mp4 references of a playlist,
// resolved against the playlist's own URL, in first-seen order.
func ExtractPlaylistURLs(playlistURL, content string) ([]string, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("parse playlist url: %w", err)
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, ".m3u8") && !strings.HasSuffix(line, ".mp4") {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		ref, err := url.Parse(line)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}
	return urls, nil
}

func isPlaylistURL(u string) bool {
	return strings.HasSuffix(u, ".m3u8")
}

// publish swaps staging in place of destination. A previous destination is kept
// aside until the swap succeeds.
func publish(staging, destination string) error {
	backup := ""
	if _, err := os.Stat(destination); err == nil {
		backup = destination + ".old-" + uuid.NewString()
		if err := renameFunc(destination, backup); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := renameFunc(staging, destination); err != nil {
		if backup != "" {
			_ = renameFunc(backup, destination)
		}
		return err
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			logger.Logger.Warn("Failed to remove replaced import directory",
				"path", backup,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// classifyImportError reports a fired import timer as ErrImportTimeout, whatever
// the in-flight operation failed with.
func classifyImportError(ctx context.Context, err error) error {
	if errors.Is(err, ErrImportBudgetExceeded) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrImportTimeout, err)
	}
	return err
}
