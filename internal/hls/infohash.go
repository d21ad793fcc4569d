package hls

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// P2PMediaLoaderPeerVersion is bumped whenever previously published trust data
// must stop being shared between peers.
const P2PMediaLoaderPeerVersion = 2

// BuildP2PInfoHashes returns the swarm identifiers the tracker uses to group
// peers watching the same rendition of a master playlist.
func BuildP2PInfoHashes(peerVersion int, masterURL string, files int) []string {
	hashes := make([]string, 0, files)
	for i := 0; i < files; i++ {
		sum := sha1.Sum([]byte(strconv.Itoa(peerVersion) + masterURL + "+V" + strconv.Itoa(i)))
		hashes = append(hashes, hex.EncodeToString(sum[:]))
	}
	return hashes
}
