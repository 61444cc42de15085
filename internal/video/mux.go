package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMuxBaseURL = "https://api.mux.com"

// MuxPlatform talks to the Mux Video REST API using a basic-auth token pair.
type MuxPlatform struct {
	tokenID     string
	tokenSecret string
	baseURL     string
	client      *http.Client
}

func NewMuxPlatform(tokenID, tokenSecret string) *MuxPlatform {
	return &MuxPlatform{
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
		baseURL:     defaultMuxBaseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// NewMuxPlatformWithBaseURL is used by tests to point the adapter at a stub server.
func NewMuxPlatformWithBaseURL(tokenID, tokenSecret, baseURL string) *MuxPlatform {
	p := NewMuxPlatform(tokenID, tokenSecret)
	p.baseURL = baseURL
	return p
}

type muxLiveStream struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	StreamKey   string `json:"stream_key"`
	PlaybackIDs []struct {
		ID     string `json:"id"`
		Policy string `json:"policy"`
	} `json:"playback_ids"`
}

type muxResponse struct {
	Data muxLiveStream `json:"data"`
}

// CreateLiveStream provisions a Mux live stream with a public playback
// policy and automatic VOD asset creation.
func (p *MuxPlatform) CreateLiveStream(ctx context.Context) (*LiveStream, error) {
	body := map[string]interface{}{
		"playback_policy":    []string{"public"},
		"new_asset_settings": map[string]interface{}{"playback_policy": []string{"public"}},
	}
	var resp muxResponse
	if err := p.do(ctx, http.MethodPost, "/video/v1/live-streams", body, &resp); err != nil {
		return nil, err
	}

	ls := &LiveStream{ID: resp.Data.ID, StreamKey: resp.Data.StreamKey}
	if len(resp.Data.PlaybackIDs) > 0 {
		ls.PlaybackID = resp.Data.PlaybackIDs[0].ID
	}
	return ls, nil
}

// Disable shuts down the remote stream so it stops accepting ingest
func (p *MuxPlatform) Disable(ctx context.Context, streamID string) error {
	path := fmt.Sprintf("/video/v1/live-streams/%s/disable", streamID)
	return p.do(ctx, http.MethodPut, path, nil, nil)
}

// GetStatus returns Mux's current view of the stream
func (p *MuxPlatform) GetStatus(ctx context.Context, streamID string) (string, error) {
	path := fmt.Sprintf("/video/v1/live-streams/%s", streamID)
	var resp muxResponse
	if err := p.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Status, nil
}

func (p *MuxPlatform) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(p.tokenID, p.tokenSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("mux request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrStreamNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mux returned %d: %s", resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode mux response: %w", err)
		}
	}
	return nil
}
