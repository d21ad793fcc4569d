package hls

import (
	"regexp"
	"strconv"
	"strings"
)

var byteRangeLine = regexp.MustCompile(`^#EXT-X-BYTERANGE:(\d+)@(\d+)$`)

// ByteRange is a contiguous span of a media file.
type ByteRange struct {
	Offset int64
	Length int64
}

// Key is the inclusive "start-end" form a verifier derives from its HTTP Range request.
func (r ByteRange) Key() string {
	return strconv.FormatInt(r.Offset, 10) + "-" + strconv.FormatInt(r.Offset+r.Length-1, 10)
}

// ExtractByteRanges returns the EXT-X-BYTERANGE directives of a resolution playlist
// in document order. A playlist without directives yields an empty slice.
func ExtractByteRanges(playlist string) []ByteRange {
	ranges := []ByteRange{}
	for _, line := range strings.Split(playlist, "\n") {
		m := byteRangeLine.FindStringSubmatch(strings.TrimRight(line, "\r \t"))
		if m == nil {
			continue
		}
		length, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		offset, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		ranges = append(ranges, ByteRange{Offset: offset, Length: length})
	}
	return ranges
}
