// Package config resolves CLI configuration with the priority chain
// flags > environment > defaults, and derives the URL surface (API,
// websocket, shareable room link) from one endpoint.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/kiyo-e/pairlane/internal/e2ee"
)

// Default configuration values (production).
const (
	DefaultEndpoint = "https://getpairlane.com"
	DefaultSTUN     = "stun:stun.cloudflare.com:3478"
)

// Config holds resolved CLI configuration.
type Config struct {
	// Endpoint is the normalised http(s) base URL of the rendezvous.
	Endpoint string

	// STUNServer feeds the ICE configuration of both peer engines.
	STUNServer string

	// Identity is the stable client identity persisted across runs.
	Identity Identity
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Endpoint   string
	STUNServer string
}

// Load resolves configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("PAIRLANE_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	endpoint, err := NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	stun := opts.STUNServer
	if stun == "" {
		stun = os.Getenv("PAIRLANE_STUN")
	}
	if stun == "" {
		stun = DefaultSTUN
	}

	identity, err := LoadIdentity("")
	if err != nil {
		return nil, err
	}

	return &Config{
		Endpoint:   endpoint,
		STUNServer: stun,
		Identity:   identity,
	}, nil
}

// NormalizeEndpoint reduces any room or websocket URL to a bare http(s)
// base: ws/wss schemes map to their http counterparts and path, query and
// fragment are dropped.
func NormalizeEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme: %s", u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// WebSocketURL builds the rendezvous URL for a room and client identity.
func (c *Config) WebSocketURL(roomID, cid string) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws/" + roomID
	u.RawQuery = url.Values{"cid": []string{cid}}.Encode()
	return u.String(), nil
}

// APIRoomsURL is the room admission endpoint.
func (c *Config) APIRoomsURL() string {
	return c.Endpoint + "/api/rooms"
}

// RoomURL builds the shareable room link. The key rides in the URL
// fragment, which browsers never transmit to the server.
func (c *Config) RoomURL(roomID string, key []byte) string {
	link := fmt.Sprintf("%s/r/%s", c.Endpoint, roomID)
	if key != nil {
		link += "#k=" + e2ee.EncodeKey(key)
	}
	return link
}

// GetSTUNServers returns STUN server URLs for the ICE configuration.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}
