package signalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const apiTimeout = 15 * time.Second

type createRoomRequest struct {
	MaxConcurrent int    `json:"maxConcurrent,omitempty"`
	CreatorCid    string `json:"creatorCid,omitempty"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

// CreateRoom calls the room admission endpoint and returns the minted room
// id. Passing the creator's cid pins the sender role to this client.
func CreateRoom(ctx context.Context, apiURL, creatorCid string, maxConcurrent int) (string, error) {
	body, err := json.Marshal(createRoomRequest{
		MaxConcurrent: maxConcurrent,
		CreatorCid:    creatorCid,
	})
	if err != nil {
		return "", fmt.Errorf("encode room request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create room request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("create room: rate limited, try again later")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create room: unexpected status %s", resp.Status)
	}

	var parsed createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse room response: %w", err)
	}
	if parsed.RoomID == "" {
		return "", fmt.Errorf("create room: empty room id in response")
	}
	return parsed.RoomID, nil
}
