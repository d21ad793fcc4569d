package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractByteRanges(t *testing.T) {
	tests := []struct {
		name     string
		playlist string
		want     []ByteRange
	}{
		{
			name:     "document order",
			playlist: "#EXTM3U\n#EXT-X-BYTERANGE:100@0\na.mp4\n#EXT-X-BYTERANGE:50@100\na.mp4\n",
			want:     []ByteRange{{Offset: 0, Length: 100}, {Offset: 100, Length: 50}},
		},
		{
			name:     "crlf line endings",
			playlist: "#EXTM3U\r\n#EXT-X-BYTERANGE:10@20\r\na.mp4\r\n",
			want:     []ByteRange{{Offset: 20, Length: 10}},
		},
		{
			name:     "directive without offset is ignored",
			playlist: "#EXT-X-BYTERANGE:10\n#EXT-X-BYTERANGE:5@0\n",
			want:     []ByteRange{{Offset: 0, Length: 5}},
		},
		{
			name:     "no directives",
			playlist: "#EXTM3U\n#EXTINF:4.0,\nsegment0.ts\n",
			want:     []ByteRange{},
		},
		{
			name:     "empty",
			playlist: "",
			want:     []ByteRange{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractByteRanges(tt.playlist)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteRangeKey(t *testing.T) {
	assert.Equal(t, "0-99", ByteRange{Offset: 0, Length: 100}.Key())
	assert.Equal(t, "100-149", ByteRange{Offset: 100, Length: 50}.Key())
}
