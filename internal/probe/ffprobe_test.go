package probe

import (
	"testing"

	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFFProbe(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want hls.ProbeResult
	}{
		{
			name: "h264 high with aac",
			out: `{"streams":[
				{"codec_type":"video","codec_name":"h264","profile":"High","level":31,"width":1280,"height":720},
				{"codec_type":"audio","codec_name":"aac","profile":"LC"}
			]}`,
			want: hls.ProbeResult{Width: 1280, Height: 720, VideoCodec: "avc1.64001F", AudioCodec: "mp4a.40.2"},
		},
		{
			name: "audio only",
			out:  `{"streams":[{"codec_type":"audio","codec_name":"aac","profile":"HE-AAC"}]}`,
			want: hls.ProbeResult{AudioCodec: "mp4a.40.5"},
		},
		{
			name: "first stream of each kind wins",
			out: `{"streams":[
				{"codec_type":"video","codec_name":"h264","profile":"Main","level":30,"width":854,"height":480},
				{"codec_type":"video","codec_name":"mjpeg","codec_tag_string":"[0][0][0][0]","width":320,"height":180},
				{"codec_type":"audio","codec_name":"opus"},
				{"codec_type":"audio","codec_name":"mp3"}
			]}`,
			want: hls.ProbeResult{Width: 854, Height: 480, VideoCodec: "avc1.4D001E", AudioCodec: "opus"},
		},
		{
			name: "unknown codec falls back to tag",
			out:  `{"streams":[{"codec_type":"video","codec_name":"prores","codec_tag_string":"apcn","width":1920,"height":1080}]}`,
			want: hls.ProbeResult{Width: 1920, Height: 1080, VideoCodec: "apcn"},
		},
		{
			name: "no streams",
			out:  `{"streams":[]}`,
			want: hls.ProbeResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFFProbe([]byte(tt.out))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFFProbeInvalidOutput(t *testing.T) {
	_, err := parseFFProbe([]byte("Invalid data found when processing input"))
	assert.Error(t, err)
}

func TestNewFFProbeDefaultsToPath(t *testing.T) {
	assert.Equal(t, "ffprobe", NewFFProbe("").Path)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", NewFFProbe("/opt/ffmpeg/bin/ffprobe").Path)
}
