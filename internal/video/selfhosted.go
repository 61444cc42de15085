package video

import (
	"context"

	"github.com/google/uuid"
)

// SelfHosted is the provider for artists bringing their own ingest. There is
// no remote API: stream keys are minted locally and status/control calls
// report ErrUnsupported so callers skip reconciliation.
type SelfHosted struct{}

func NewSelfHosted() *SelfHosted {
	return &SelfHosted{}
}

func (s *SelfHosted) CreateLiveStream(ctx context.Context) (*LiveStream, error) {
	key := uuid.New().String()
	return &LiveStream{ID: key, StreamKey: key}, nil
}

func (s *SelfHosted) Disable(ctx context.Context, streamID string) error {
	return ErrUnsupported
}

func (s *SelfHosted) GetStatus(ctx context.Context, streamID string) (string, error) {
	return "", ErrUnsupported
}
