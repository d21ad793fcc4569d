package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	videos map[string]*model.Video
}

func (r *fakeRepo) GetVideo(ctx context.Context, videoID string) (*model.Video, error) {
	v, ok := r.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, repository.ErrNotFound)
	}
	return v, nil
}

func (r *fakeRepo) SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error { return nil }

// stepBuilder records its name into a shared log and sets the matching artifact name.
type stepBuilder struct {
	name string
	log  *[]string
	err  error
}

func (b *stepBuilder) Build(ctx context.Context, v *model.Video) error {
	*b.log = append(*b.log, b.name)
	if b.err != nil {
		return b.err
	}
	switch b.name {
	case "master":
		v.Playlist.PlaylistFilename = "new-master.m3u8"
	case "integrity":
		v.Playlist.SegmentsSha256Filename = "new-segments-sha256.json"
	}
	return nil
}

type fakeImporter struct {
	calls []ImportRequest
	dest  string
	err   error
}

func (f *fakeImporter) Import(ctx context.Context, masterURL, destinationDir string, timeout time.Duration, budgetKB int64) (*hls.ImportResult, error) {
	f.calls = append(f.calls, ImportRequest{MasterURL: masterURL, Timeout: timeout, BudgetKB: budgetKB})
	f.dest = destinationDir
	if f.err != nil {
		return nil, f.err
	}
	return &hls.ImportResult{JobID: "job-1", Files: []string{"master.m3u8"}, Bytes: 10}, nil
}

type notification struct {
	kind, videoID, description string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) SendSuccessNotification(videoID, serviceName, description string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{"success", videoID, description})
	return nil
}

func (n *fakeNotifier) SendErrorNotification(videoID, serviceName, description string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{"error", videoID, description})
	return errors.New("channel closed")
}

type fixture struct {
	svc      StreamingService
	log      []string
	master   *stepBuilder
	integ    *stepBuilder
	importer *fakeImporter
	notifier *fakeNotifier
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{importer: &fakeImporter{}, notifier: &fakeNotifier{}, root: t.TempDir()}
	f.master = &stepBuilder{name: "master", log: &f.log}
	f.integ = &stepBuilder{name: "integrity", log: &f.log}

	repo := &fakeRepo{videos: map[string]*model.Video{
		"42": {ID: "42", UUID: "u-42", Playlist: &model.StreamingPlaylist{VideoID: "42", VideoUUID: "u-42"}},
	}}
	q := hls.NewMutationQueue(time.Second)
	t.Cleanup(q.Close)

	f.svc = NewStreamingService(repo, f.master, f.integ, f.importer, q, f.notifier, Options{
		ImportRoot:      f.root,
		DefaultTimeout:  time.Minute,
		DefaultBudgetKB: 2048,
	})
	return f
}

func TestRebuildAllRunsMasterThenIntegrity(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.RebuildAll(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, []string{"master", "integrity"}, f.log)
	assert.Equal(t, "new-master.m3u8", p.PlaylistFilename)
	assert.Equal(t, "new-segments-sha256.json", p.SegmentsSha256Filename)
}

func TestRebuildSingleArtifacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RebuildMasterPlaylist(ctx, "42")
	require.NoError(t, err)
	_, err = f.svc.RebuildSegmentsSha256(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, []string{"master", "integrity"}, f.log)
}

func TestRebuildStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.master.err = fmt.Errorf("%w: 42-720-fragmented.mp4", hls.ErrProbeFailed)

	_, err := f.svc.RebuildAll(context.Background(), "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, hls.ErrProbeFailed)
	assert.Equal(t, []string{"master"}, f.log)
}

func TestRebuildUnknownVideo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RebuildMasterPlaylist(context.Background(), "404")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.RebuildMasterPlaylist(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, f.log)
}

func TestOnTranscodingFinishedNotifies(t *testing.T) {
	f := newFixture(t)

	f.svc.OnTranscodingFinished(context.Background(), "42")
	f.svc.OnTranscodingFinished(context.Background(), "404")

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "success", f.notifier.sent[0].kind)
	assert.Equal(t, "42", f.notifier.sent[0].videoID)
	assert.Equal(t, "error", f.notifier.sent[1].kind)
	assert.Contains(t, f.notifier.sent[1].description, "not found")
}

func TestImportPlaylistAppliesDefaultsAndConfinesDestination(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ImportPlaylist(context.Background(), ImportRequest{
		MasterURL:   "https://origin.test/master.m3u8",
		Destination: "../../etc/videos",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.JobID)

	require.Len(t, f.importer.calls, 1)
	assert.Equal(t, time.Minute, f.importer.calls[0].Timeout)
	assert.Equal(t, int64(2048), f.importer.calls[0].BudgetKB)
	assert.Equal(t, filepath.Join(f.root, "etc", "videos"), f.importer.dest)
}

func TestImportPlaylistRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  ImportRequest
	}{
		{name: "empty url", req: ImportRequest{Destination: "a"}},
		{name: "unsupported scheme", req: ImportRequest{MasterURL: "ftp://origin.test/m.m3u8", Destination: "a"}},
		{name: "empty destination", req: ImportRequest{MasterURL: "https://origin.test/m.m3u8", Destination: "/"}},
		{name: "timeout above cap", req: ImportRequest{MasterURL: "https://origin.test/m.m3u8", Destination: "a", Timeout: MaxImportTimeout + time.Millisecond}},
		{name: "budget above cap", req: ImportRequest{MasterURL: "https://origin.test/m.m3u8", Destination: "a", BudgetKB: math.MaxInt64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.ImportPlaylist(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, f.importer.calls)
		})
	}
}

func TestImportPlaylistFailureIsNotified(t *testing.T) {
	f := newFixture(t)
	f.importer.err = fmt.Errorf("%w: GET master: status 404", hls.ErrImportNetwork)

	_, err := f.svc.ImportPlaylist(context.Background(), ImportRequest{
		MasterURL:   "http://origin.test/master.m3u8",
		Destination: "v1",
		Timeout:     time.Second,
		BudgetKB:    1,
	})
	assert.ErrorIs(t, err, hls.ErrImportNetwork)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "error", f.notifier.sent[0].kind)
	assert.Equal(t, time.Second, f.importer.calls[0].Timeout)
}
