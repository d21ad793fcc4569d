package hls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/model"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

const (
	audioGroupID     = "audio"
	subtitlesGroupID = "subtitles"
	playlistVersion  = 3
)

// MasterBuilder produces the master manifest of a video.
type MasterBuilder struct {
	prober  Prober
	files   LocalFiles
	store   ArtifactStore
	saver   PlaylistSaver
	newName func() string
}

func NewMasterBuilder(prober Prober, files LocalFiles, store ArtifactStore, saver PlaylistSaver) *MasterBuilder {
	return &MasterBuilder{
		prober:  prober,
		files:   files,
		store:   store,
		saver:   saver,
		newName: NewMasterPlaylistFilename,
	}
}

// Build renders the manifest for the current files and captions of v and replaces
// any previous one. Nothing is written when a file can not be probed.
func (b *MasterBuilder) Build(ctx context.Context, v *model.Video) error {
	start := time.Now()
	if v.Playlist == nil {
		return errors.New("video has no streaming playlist")
	}

	content, err := b.Render(ctx, v)
	if err != nil {
		logger.LogPlaylistOperation(ctx, "build_master", v.ID, "", time.Since(start), err)
		return err
	}

	p := v.Playlist
	name := b.newName()
	err = replaceArtifact(ctx, b.store, b.saverWithInfoHashes(v), p,
		artifactSlot{name: &p.PlaylistFilename, url: &p.PlaylistURL}, name, []byte(content))

	logger.LogPlaylistOperation(ctx, "build_master", v.ID, name, time.Since(start), err)
	return err
}

// saverWithInfoHashes refreshes the tracker info hashes from the new master URL
// right before the playlist row is written.
func (b *MasterBuilder) saverWithInfoHashes(v *model.Video) PlaylistSaver {
	return saverFunc(func(ctx context.Context, p *model.StreamingPlaylist) error {
		oldVersion, oldHashes := p.P2PMediaLoaderPeerVersion, p.P2PInfoHashes
		if p.P2PMediaLoaderPeerVersion < P2PMediaLoaderPeerVersion {
			p.P2PMediaLoaderPeerVersion = P2PMediaLoaderPeerVersion
		}
		p.P2PInfoHashes = BuildP2PInfoHashes(p.P2PMediaLoaderPeerVersion, p.PlaylistURL, len(v.Files))
		if err := b.saver.SavePlaylist(ctx, p); err != nil {
			p.P2PMediaLoaderPeerVersion, p.P2PInfoHashes = oldVersion, oldHashes
			return err
		}
		return nil
	})
}

type saverFunc func(ctx context.Context, p *model.StreamingPlaylist) error

func (f saverFunc) SavePlaylist(ctx context.Context, p *model.StreamingPlaylist) error {
	return f(ctx, p)
}

// Render returns the manifest text without persisting it.
func (b *MasterBuilder) Render(ctx context.Context, v *model.Video) (string, error) {
	files := v.SortedFiles()
	split := v.HasAudioAndVideoSplit()

	var subtitles []string
	for _, c := range v.Captions {
		if c.Filename == "" {
			continue
		}
		subtitles = append(subtitles, fmt.Sprintf(
			`#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="%s",NAME="%s",LANGUAGE="%s",AUTOSELECT=YES,URI="%s"`,
			subtitlesGroupID, c.Language, c.Language, c.Filename,
		))
	}

	var audio, streams []string
	var defaultAudioCodec string

	for _, f := range files {
		var probe ProbeResult
		err := b.files.WithVideoFile(ctx, v.Playlist, f, func(path string) error {
			var err error
			probe, err = b.prober.Probe(ctx, path)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrProbeFailed, f.Filename, err)
		}

		playlistFilename := ResolutionPlaylistFilename(f.Filename)

		if split && f.IsAudioOnly() {
			defaultAudioCodec = probe.AudioCodec
		}

		if split && !probe.HasPicture() && len(files) > 1 {
			audio = append(audio, fmt.Sprintf(
				`#EXT-X-MEDIA:TYPE=AUDIO,ID="%s",NAME="audio",AUTOSELECT=YES,DEFAULT=YES,URI="%s"`,
				audioGroupID, playlistFilename,
			))
			continue
		}

		line := "#EXT-X-STREAM-INF:BANDWIDTH=" + strconv.FormatInt(bandwidthBits(f.Size, v.Duration), 10)
		if !f.IsAudioOnly() {
			line += fmt.Sprintf(",RESOLUTION=%dx%d", probe.Width, probe.Height)
		}
		if f.FPS > 0 {
			line += ",FRAME-RATE=" + strconv.Itoa(f.FPS)
		}

		audioCodec := probe.AudioCodec
		if audioCodec == "" {
			audioCodec = defaultAudioCodec
		}
		codecs := make([]string, 0, 2)
		for _, c := range []string{probe.VideoCodec, audioCodec} {
			if c != "" {
				codecs = append(codecs, c)
			}
		}
		line += `,CODECS="` + strings.Join(codecs, ",") + `"`

		if split {
			line += `,AUDIO="` + audioGroupID + `"`
		}
		if len(subtitles) > 0 {
			line += `,SUBTITLES="` + subtitlesGroupID + `"`
		}

		streams = append(streams, line, playlistFilename)
	}

	lines := []string{"#EXTM3U", "#EXT-X-VERSION:" + strconv.Itoa(playlistVersion), ""}
	if len(subtitles) > 0 {
		lines = append(lines, subtitles...)
		lines = append(lines, "")
	}
	if len(audio) > 0 {
		lines = append(lines, audio...)
		lines = append(lines, "")
	}
	lines = append(lines, streams...)

	return strings.Join(lines, "\n") + "\n", nil
}

// bandwidthBits is the average bitrate of a file over the whole video duration.
func bandwidthBits(size int64, durationSeconds int) int64 {
	if durationSeconds <= 0 {
		durationSeconds = 1
	}
	d := int64(durationSeconds)
	return (size*8 + d - 1) / d
}
