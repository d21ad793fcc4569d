package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lumbrjx/codek7/streaming/internal/model"
)

type playlistResponse struct {
	VideoID                   string    `json:"video_id"`
	PlaylistFilename          string    `json:"playlist_filename"`
	PlaylistURL               string    `json:"playlist_url"`
	SegmentsSha256Filename    string    `json:"segments_sha256_filename"`
	SegmentsSha256URL         string    `json:"segments_sha256_url"`
	StorageLocation           string    `json:"storage_location"`
	P2PMediaLoaderPeerVersion int       `json:"p2p_media_loader_peer_version"`
	P2PInfoHashes             []string  `json:"p2p_infohashes"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func toPlaylistResponse(p *model.StreamingPlaylist) playlistResponse {
	return playlistResponse{
		VideoID:                   p.VideoID,
		PlaylistFilename:          p.PlaylistFilename,
		PlaylistURL:               p.PlaylistURL,
		SegmentsSha256Filename:    p.SegmentsSha256Filename,
		SegmentsSha256URL:         p.SegmentsSha256URL,
		StorageLocation:           p.StorageLocation.String(),
		P2PMediaLoaderPeerVersion: p.P2PMediaLoaderPeerVersion,
		P2PInfoHashes:             p.P2PInfoHashes,
		UpdatedAt:                 p.UpdatedAt,
	}
}

type rebuildFunc func(ctx context.Context, videoID string) (*model.StreamingPlaylist, error)

func (a *API) rebuild(fn rebuildFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "video_id")

		p, err := fn(r.Context(), videoID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlaylistResponse(p))
	}
}

// RebuildMaster handles POST /videos/{video_id}/hls/master.
func (a *API) RebuildMaster(w http.ResponseWriter, r *http.Request) {
	a.rebuild(a.Service.RebuildMasterPlaylist)(w, r)
}

// RebuildSegmentsSha256 handles POST /videos/{video_id}/hls/segments-sha256.
func (a *API) RebuildSegmentsSha256(w http.ResponseWriter, r *http.Request) {
	a.rebuild(a.Service.RebuildSegmentsSha256)(w, r)
}

// RebuildAll handles POST /videos/{video_id}/hls/rebuild.
func (a *API) RebuildAll(w http.ResponseWriter, r *http.Request) {
	a.rebuild(a.Service.RebuildAll)(w, r)
}
