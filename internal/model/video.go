package model

import (
	"sort"
	"time"
)

// StorageLocation tells where the HLS artifacts of a streaming playlist live.
type StorageLocation int

const (
	StorageLocal StorageLocation = iota + 1
	StorageObject
)

func (s StorageLocation) String() string {
	switch s {
	case StorageLocal:
		return "local"
	case StorageObject:
		return "object_storage"
	}
	return "unknown"
}

// ResolutionAudioOnly is the resolution of a file that carries no picture.
const ResolutionAudioOnly = 0

type Video struct {
	ID        string
	UUID      string
	Duration  int // seconds
	CreatedAt time.Time

	Playlist *StreamingPlaylist
	Files    []*VideoFile
	Captions []*Caption
}

// StreamingPlaylist is the HLS packaging state of a video.
type StreamingPlaylist struct {
	ID      int64
	VideoID string
	// VideoUUID names the artifact directory / object prefix.
	VideoUUID string

	PlaylistFilename string
	PlaylistURL      string

	SegmentsSha256Filename string
	SegmentsSha256URL      string

	StorageLocation           StorageLocation
	P2PMediaLoaderPeerVersion int
	P2PInfoHashes             []string

	UpdatedAt time.Time
}

// VideoFile is one encoded rendition of a video.
type VideoFile struct {
	ID         int64
	VideoID    string
	Resolution int
	FPS        int
	Filename   string
	Size       int64
}

func (f *VideoFile) IsAudioOnly() bool {
	return f.Resolution == ResolutionAudioOnly
}

type Caption struct {
	Language string
	Filename string
}

// SortedFiles returns the files by ascending resolution, so an audio-only file comes first.
func (v *Video) SortedFiles() []*VideoFile {
	files := make([]*VideoFile, len(v.Files))
	copy(files, v.Files)
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Resolution < files[j].Resolution
	})
	return files
}

// HasAudioAndVideoSplit reports whether the audio track is packaged as its own rendition.
func (v *Video) HasAudioAndVideoSplit() bool {
	if len(v.Files) < 2 {
		return false
	}
	for _, f := range v.Files {
		if f.IsAudioOnly() {
			return true
		}
	}
	return false
}
