package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the engagement stream
const (
	EventVideosViewed = "videos_viewed"
	EventVideoDeleted = "video_deleted"
)

// Stream names
const (
	StreamEngagement = "stream:engagement"
)

// Consumer group name for engagement workers
const (
	ConsumerGroupEngagement = "engagement_workers"
)

// EngagementEvent is bookkeeping work deferred off the request path.
// Ids are hex object ids.
type EngagementEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// VideosViewed
	VideoIDs []string `json:"video_ids,omitempty"`

	// VideoDeleted
	VideoID    string `json:"video_id,omitempty"`
	UploaderID string `json:"uploader_id,omitempty"`
}

// NewVideosViewedEvent is published after a feed or search page is served.
// The worker bumps the view counter of every listed video.
func NewVideosViewedEvent(videoIDs []string) EngagementEvent {
	return EngagementEvent{
		Type:      EventVideosViewed,
		Timestamp: time.Now().Unix(),
		VideoIDs:  videoIDs,
	}
}

// NewVideoDeletedEvent is published after a video document is removed.
// The worker pulls the video from every user's liked list.
func NewVideoDeletedEvent(videoID, uploaderID string) EngagementEvent {
	return EngagementEvent{
		Type:       EventVideoDeleted,
		Timestamp:  time.Now().Unix(),
		VideoID:    videoID,
		UploaderID: uploaderID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e EngagementEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEngagementEvent parses an EngagementEvent from Redis stream message values.
func ParseEngagementEvent(values map[string]interface{}) (EngagementEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return EngagementEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event EngagementEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return EngagementEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
