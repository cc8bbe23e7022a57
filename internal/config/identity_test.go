package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeCorruptIdentity overwrites the identity file with an invalid
// msgpack byte.
func writeCorruptIdentity(dir string) error {
	return os.WriteFile(filepath.Join(dir, identityFileName), []byte{0xc1}, 0o600)
}

func TestLoadIdentityPersistsCid(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadIdentity(dir)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cid == "" {
		t.Fatal("minted identity has no cid")
	}

	second, err := LoadIdentity(dir)
	if err != nil {
		t.Fatal(err)
	}
	if second.Cid != first.Cid {
		t.Fatalf("cid changed across loads: %q != %q", second.Cid, first.Cid)
	}
}

func TestLoadIdentityRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadIdentity(dir); err != nil {
		t.Fatal(err)
	}

	// Trash the file; the next load should mint a fresh identity rather
	// than fail.
	if err := writeCorruptIdentity(dir); err != nil {
		t.Fatal(err)
	}
	identity, err := LoadIdentity(dir)
	if err != nil {
		t.Fatal(err)
	}
	if identity.Cid == "" {
		t.Fatal("no identity recovered")
	}
}
