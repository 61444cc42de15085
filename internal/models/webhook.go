package models

// WebhookEvent is the provider event envelope delivered to the webhook
// receiver: {"type": "...", "data": {"id": "...", ...}}.
type WebhookEvent struct {
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData carries the provider-side fields we care about. The
// provider sends more; unknown fields are ignored.
type WebhookEventData struct {
	ID           string       `json:"id"`
	LiveStreamID string       `json:"live_stream_id,omitempty"`
	Status       string       `json:"status,omitempty"`
	PlaybackIDs  []PlaybackID `json:"playback_ids,omitempty"`
	ViewerCount  *int         `json:"viewer_count,omitempty"`
	Duration     *float64     `json:"duration,omitempty"`
}

type PlaybackID struct {
	ID     string `json:"id"`
	Policy string `json:"policy,omitempty"`
}

// Webhook event types dispatched by the receiver.
const (
	EventStreamActive  = "stream.active"
	EventStreamIdle    = "stream.idle"
	EventStreamUpdated = "stream.updated"
	EventAssetReady    = "asset.ready"
)
