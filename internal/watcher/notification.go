package watcher

import "time"

type Notification struct {
	EventType   string    `json:"event_type"` // "error", "success"
	VideoID     string    `json:"video_id,omitempty"`
	ServiceName string    `json:"service_name"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// TranscodedEvent is published by the transcoding pipeline once every
// rendition of a video is written.
type TranscodedEvent struct {
	VideoID string `json:"video_id"`
}
