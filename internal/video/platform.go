package video

import (
	"context"
	"errors"
)

// Remote stream statuses as reported by the provider.
const (
	StatusActive   = "active"
	StatusIdle     = "idle"
	StatusDisabled = "disabled"
)

var (
	// ErrStreamNotFound is returned when the provider has no stream with
	// the given id.
	ErrStreamNotFound = errors.New("stream not found on provider")

	// ErrUnsupported is returned by providers that have no remote control
	// surface (self-hosted ingest).
	ErrUnsupported = errors.New("operation not supported by provider")
)

// LiveStream is the provider-side identity of a created stream.
type LiveStream struct {
	ID         string
	StreamKey  string
	PlaybackID string
}

// Platform is the narrow port in front of the hosted video vendor. Handlers
// and the lifecycle service depend on this interface, never on the vendor
// client directly.
type Platform interface {
	// CreateLiveStream provisions a new live stream and returns its
	// provider-side identity.
	CreateLiveStream(ctx context.Context) (*LiveStream, error)

	// Disable shuts down the remote stream so it stops accepting ingest.
	Disable(ctx context.Context, streamID string) error

	// GetStatus returns the provider's current view of the stream:
	// active, idle, or disabled.
	GetStatus(ctx context.Context, streamID string) (string, error)
}
