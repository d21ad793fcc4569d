package hls

import "regexp"

var (
	fragmentedFileRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}-\d+-fragmented\.mp4`)
	playlistURLRegex    = regexp.MustCompile(`\.(m3u8|mp4|m4s|ts|aac|m4a|vtt|json)\b`)
)

// RenameVideoFileInPlaylist points every fragmented file reference of a resolution
// playlist at newFilename. Applying it twice with different names is not supported.
func RenameVideoFileInPlaylist(content, newFilename string) string {
	return fragmentedFileRegex.ReplaceAllLiteralString(content, newFilename)
}

// InjectQueryToPlaylistURLs appends "?query" to every media or manifest reference.
// Callers must apply it once per content.
func InjectQueryToPlaylistURLs(content, query string) string {
	if query == "" {
		return content
	}
	return playlistURLRegex.ReplaceAllString(content, ".${1}?"+escapeReplacement(query))
}

func escapeReplacement(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			out = append(out, '$')
		}
		out = append(out, s[i])
	}
	return string(out)
}
