package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
)

// FFProbe inspects media files with the ffprobe binary.
type FFProbe struct {
	Path string
}

func NewFFProbe(path string) *FFProbe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFProbe{Path: path}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType   string `json:"codec_type"`
	CodecName   string `json:"codec_name"`
	CodecTagStr string `json:"codec_tag_string"`
	Profile     string `json:"profile"`
	Level       int    `json:"level"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

func (p *FFProbe) Probe(ctx context.Context, path string) (hls.ProbeResult, error) {
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return hls.ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseFFProbe(out)
}

func parseFFProbe(out []byte) (hls.ProbeResult, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return hls.ProbeResult{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var res hls.ProbeResult
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if res.VideoCodec != "" {
				continue
			}
			res.Width, res.Height = s.Width, s.Height
			res.VideoCodec = videoCodecString(s)
		case "audio":
			if res.AudioCodec != "" {
				continue
			}
			res.AudioCodec = audioCodecString(s)
		}
	}
	return res, nil
}

// videoCodecString renders the RFC 6381 codec string players expect in CODECS.
func videoCodecString(s ffprobeStream) string {
	switch s.CodecName {
	case "h264":
		profile := "42"
		switch s.Profile {
		case "Main":
			profile = "4D"
		case "High":
			profile = "64"
		}
		return fmt.Sprintf("avc1.%s00%02X", profile, s.Level)
	case "hevc":
		return "hev1.1.6.L93.B0"
	case "vp9":
		return "vp09.00.10.08"
	case "av1":
		return "av01.0.05M.08"
	}
	return s.CodecTagStr
}

func audioCodecString(s ffprobeStream) string {
	switch s.CodecName {
	case "aac":
		if s.Profile == "HE-AAC" {
			return "mp4a.40.5"
		}
		return "mp4a.40.2"
	case "mp3":
		return "mp4a.40.34"
	case "opus":
		return "opus"
	case "flac":
		return "fLaC"
	}
	return s.CodecTagStr
}
