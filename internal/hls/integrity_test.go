package hls

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rangedPlaylist = `#EXTM3U
#EXT-X-VERSION:7
#EXT-X-TARGETDURATION:4
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:4.000000,
#EXT-X-BYTERANGE:100@0
` + testUUID + `-480-fragmented.mp4
#EXTINF:2.000000,
#EXT-X-BYTERANGE:50@100
` + testUUID + `-480-fragmented.mp4
#EXT-X-ENDLIST
`

func sha(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mediaBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func setupIntegrityFixture(t *testing.T) (string, *model.Video, []byte) {
	t.Helper()
	dir := t.TempDir()

	ranged := file(480, 30, 150)
	flat := file(720, 30, 10)
	data := mediaBytes(150)

	writeFile(t, dir, ranged.Filename, data)
	writeFile(t, dir, ResolutionPlaylistFilename(ranged.Filename), []byte(rangedPlaylist))
	writeFile(t, dir, flat.Filename, mediaBytes(10))
	writeFile(t, dir, ResolutionPlaylistFilename(flat.Filename), []byte("#EXTM3U\n#EXTINF:4.0,\nsegment0.ts\n#EXT-X-ENDLIST\n"))

	return dir, newVideo(ranged, flat), data
}

func TestIntegrityCompute(t *testing.T) {
	dir, v, data := setupIntegrityFixture(t)
	b := NewIntegrityBuilder(dirFiles{dir: dir}, newMemStore(), &recordingSaver{}, 2)

	m, err := b.Compute(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, IntegrityMap{
		v.Files[0].Filename: {
			"0-99":    sha(data[:100]),
			"100-149": sha(data[100:150]),
		},
		v.Files[1].Filename: {},
	}, m)
}

func TestIntegrityBuildIsStableAcrossRebuilds(t *testing.T) {
	dir, v, _ := setupIntegrityFixture(t)
	store := newMemStore()
	saver := &recordingSaver{}
	b := NewIntegrityBuilder(dirFiles{dir: dir}, store, saver, 0)
	ctx := context.Background()

	require.NoError(t, b.Build(ctx, v))
	first := v.Playlist.SegmentsSha256Filename
	firstContent := store.content(first)

	require.NoError(t, b.Build(ctx, v))
	second := v.Playlist.SegmentsSha256Filename

	assert.NotEqual(t, first, second)
	assert.Equal(t, firstContent, store.content(second))
	assert.Equal(t, []string{second}, store.names())
	assert.Equal(t, P2PMediaLoaderPeerVersion, v.Playlist.P2PMediaLoaderPeerVersion)
	assert.Equal(t, "https://cdn.test/"+testUUID+"/"+second, v.Playlist.SegmentsSha256URL)

	var decoded map[string]map[string]string
	require.NoError(t, json.Unmarshal(store.content(second), &decoded))
	assert.Len(t, decoded, 2)
	assert.Empty(t, decoded[v.Files[1].Filename])
}

func TestIntegrityRangePastEndOfFile(t *testing.T) {
	dir := t.TempDir()
	f := file(480, 30, 120)
	writeFile(t, dir, f.Filename, mediaBytes(120))
	writeFile(t, dir, ResolutionPlaylistFilename(f.Filename), []byte(rangedPlaylist))

	store := newMemStore()
	saver := &recordingSaver{}
	b := NewIntegrityBuilder(dirFiles{dir: dir}, store, saver, 1)

	err := b.Build(context.Background(), newVideo(f))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100-149")
	assert.Empty(t, store.names())
	assert.Zero(t, saver.count())
}

func TestIntegrityRejectsOversizedRangeWithoutReading(t *testing.T) {
	dir := t.TempDir()
	f := file(480, 30, 120)
	playlist := "#EXTM3U\n#EXT-X-VERSION:7\n#EXTINF:4.000000,\n" +
		"#EXT-X-BYTERANGE:99999999999@0\n" + f.Filename + "\n#EXT-X-ENDLIST\n"
	writeFile(t, dir, f.Filename, mediaBytes(120))
	writeFile(t, dir, ResolutionPlaylistFilename(f.Filename), []byte(playlist))

	b := NewIntegrityBuilder(dirFiles{dir: dir}, newMemStore(), &recordingSaver{}, 1)

	var err error
	require.NotPanics(t, func() {
		_, err = b.Compute(context.Background(), newVideo(f))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0-99999999998")
}

func TestIntegrityMissingResolutionPlaylist(t *testing.T) {
	dir := t.TempDir()
	f := file(480, 30, 10)
	writeFile(t, dir, f.Filename, mediaBytes(10))

	b := NewIntegrityBuilder(dirFiles{dir: dir}, newMemStore(), &recordingSaver{}, 1)

	_, err := b.Compute(context.Background(), newVideo(f))
	assert.Error(t, err)
}
