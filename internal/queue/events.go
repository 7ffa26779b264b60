package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the sync stream
const (
	EventProfileChanged = "profile_changed"
	EventGraphRepair    = "graph_repair"
)

// Stream names
const (
	StreamSync = "stream:sync"
)

// Consumer group name for sync workers
const (
	ConsumerGroupSync = "sync_workers"
)

// SyncEvent represents an event published to the sync stream.
// All reconciliation events share this structure.
type SyncEvent struct {
	Type      string `json:"type"`      // EventProfileChanged, EventGraphRepair
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Profile change (ProfileChanged): the committed values to propagate
	// into reply snapshots.
	UserID    int64   `json:"user_id,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Graph repair (GraphRepair): the edge whose followers side needs to
	// be re-derived from the followings side.
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewProfileChangedEvent creates an event for a committed profile update.
// Worker will rewrite stale author snapshots embedded in replies.
func NewProfileChangedEvent(userID int64, username string, avatarURL *string) SyncEvent {
	return SyncEvent{
		Type:      EventProfileChanged,
		Timestamp: time.Now().Unix(),
		UserID:    userID,
		Username:  username,
		AvatarURL: avatarURL,
	}
}

// NewGraphRepairEvent creates an event for a follow edge whose second
// write failed after retries. Worker will re-derive symmetry for the pair.
func NewGraphRepairEvent(followerID, followeeID int64) SyncEvent {
	return SyncEvent{
		Type:       EventGraphRepair,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e SyncEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSyncEvent parses a SyncEvent from Redis stream message values.
func ParseSyncEvent(values map[string]interface{}) (SyncEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SyncEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SyncEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SyncEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
