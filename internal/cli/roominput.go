package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kiyo-e/pairlane/internal/config"
	"github.com/kiyo-e/pairlane/internal/e2ee"
)

// RoomInput is a parsed room argument: a bare id, an id with a key
// fragment, or a full room URL (which also pins the endpoint).
type RoomInput struct {
	RoomID   string
	Endpoint string
	Key      []byte
}

// ParseRoomInput accepts "ROOMID", "ROOMID#k=…" or a full room URL like
// "https://host/r/ROOMID#k=…".
func ParseRoomInput(value string) (*RoomInput, error) {
	if strings.Contains(value, "://") {
		return parseRoomURL(value)
	}

	roomID := value
	var key []byte
	if id, fragment, ok := strings.Cut(value, "#"); ok {
		roomID = id
		parsed, err := parseKeyFragment(fragment)
		if err != nil {
			return nil, err
		}
		key = parsed
	}

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room ID is required")
	}
	return &RoomInput{RoomID: roomID, Key: key}, nil
}

func parseRoomURL(value string) (*RoomInput, error) {
	u, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid room URL: %w", err)
	}

	roomID, err := roomIDFromPath(u.Path)
	if err != nil {
		return nil, err
	}

	endpoint, err := config.NormalizeEndpoint(value)
	if err != nil {
		return nil, err
	}

	var key []byte
	if u.Fragment != "" {
		key, err = parseKeyFragment(u.Fragment)
		if err != nil {
			return nil, err
		}
	}

	return &RoomInput{RoomID: roomID, Endpoint: endpoint, Key: key}, nil
}

// roomIDFromPath handles "/r/{id}" and bare "/{id}" paths.
func roomIDFromPath(path string) (string, error) {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	switch {
	case len(segments) >= 2 && segments[0] == "r":
		return segments[1], nil
	case len(segments) == 1:
		return segments[0], nil
	default:
		return "", fmt.Errorf("room ID not found in URL path")
	}
}

// parseKeyFragment extracts the session key from a "#k=…" fragment. A
// fragment without a key is fine; a malformed key is not.
func parseKeyFragment(fragment string) ([]byte, error) {
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, fmt.Errorf("invalid URL fragment: %w", err)
	}
	encoded := values.Get("k")
	if encoded == "" {
		return nil, nil
	}
	return e2ee.DecodeKey(encoded)
}
