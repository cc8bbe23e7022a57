package config

import (
	"strings"
	"testing"
)

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://pairlane.example", "https://pairlane.example"},
		{"https://pairlane.example/r/SOMEROOM#k=abc", "https://pairlane.example"},
		{"http://localhost:8080/ws/room?cid=1", "http://localhost:8080"},
		{"wss://pairlane.example", "https://pairlane.example"},
		{"ws://localhost:8080", "http://localhost:8080"},
	}
	for _, c := range cases {
		got, err := NormalizeEndpoint(c.in)
		if err != nil {
			t.Errorf("NormalizeEndpoint(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeEndpoint(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeEndpointRejectsOddSchemes(t *testing.T) {
	if _, err := NormalizeEndpoint("ftp://pairlane.example"); err == nil {
		t.Fatal("ftp endpoint should be rejected")
	}
}

func TestWebSocketURL(t *testing.T) {
	cfg := &Config{Endpoint: "https://pairlane.example"}
	got, err := cfg.WebSocketURL("ROOMID2345", "cid-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "wss://pairlane.example/ws/ROOMID2345?cid=cid-1" {
		t.Fatalf("ws url = %q", got)
	}

	cfg.Endpoint = "http://localhost:8080"
	got, _ = cfg.WebSocketURL("ROOMID2345", "cid-1")
	if !strings.HasPrefix(got, "ws://") {
		t.Fatalf("plain http endpoint should yield ws://, got %q", got)
	}
}

func TestRoomURLCarriesKeyInFragment(t *testing.T) {
	cfg := &Config{Endpoint: "https://pairlane.example"}
	key := make([]byte, 32)

	link := cfg.RoomURL("ROOMID2345", key)
	if !strings.Contains(link, "/r/ROOMID2345#k=") {
		t.Fatalf("link = %q", link)
	}

	link = cfg.RoomURL("ROOMID2345", nil)
	if strings.Contains(link, "#") {
		t.Fatalf("plaintext link must not carry a fragment: %q", link)
	}
}
