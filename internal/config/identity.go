package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const identityFileName = "identity"

// Identity is the stable client identity. The cid round-trips across runs
// so the room recognises a returning client and evicts its stale socket
// instead of treating it as a new peer.
type Identity struct {
	Cid string `msgpack:"cid"`
}

// LoadIdentity reads the persisted identity, minting and saving a fresh
// one on first use. An empty dir selects the platform config directory.
func LoadIdentity(dir string) (Identity, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			// No config dir (minimal containers): use an ephemeral cid.
			return Identity{Cid: uuid.New().String()}, nil
		}
		dir = filepath.Join(base, "pairlane")
	}

	path := filepath.Join(dir, identityFileName)
	if data, err := os.ReadFile(path); err == nil {
		var identity Identity
		if err := msgpack.Unmarshal(data, &identity); err == nil && identity.Cid != "" {
			return identity, nil
		}
		// Corrupt identity file: fall through and rewrite it.
	}

	identity := Identity{Cid: uuid.New().String()}
	if err := saveIdentity(dir, path, identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func saveIdentity(dir, path string, identity Identity) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := msgpack.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
