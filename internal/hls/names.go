package hls

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	masterPlaylistSuffix = "-master.m3u8"
	segmentsSha256Suffix = "-segments-sha256.json"
	fragmentedSuffix     = "-fragmented.mp4"
)

// NewMasterPlaylistFilename never returns the same name twice, so CDN and peer
// caches can not serve a stale manifest under a current name.
func NewMasterPlaylistFilename() string {
	return uuid.NewString() + masterPlaylistSuffix
}

func NewSegmentsSha256Filename() string {
	return uuid.NewString() + segmentsSha256Suffix
}

// ResolutionPlaylistFilename maps "<id>-720-fragmented.mp4" to "<id>-720.m3u8".
func ResolutionPlaylistFilename(videoFilename string) string {
	if strings.HasSuffix(videoFilename, fragmentedSuffix) {
		return strings.TrimSuffix(videoFilename, fragmentedSuffix) + ".m3u8"
	}
	return strings.TrimSuffix(videoFilename, path.Ext(videoFilename)) + ".m3u8"
}
