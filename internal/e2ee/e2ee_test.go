package e2ee

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func testCipher(t *testing.T) (*Cipher, []byte) {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	return c, key
}

func TestSealOpenRoundTrip(t *testing.T) {
	c, _ := testCipher(t)

	for _, size := range []int{0, 1, 16, 16*1024 - Overhead} {
		plain := make([]byte, size)
		rand.Read(plain)

		frame, err := c.Seal(plain)
		if err != nil {
			t.Fatal(err)
		}
		if len(frame) != size+Overhead {
			t.Fatalf("frame size = %d, want %d", len(frame), size+Overhead)
		}

		got, err := c.Open(frame)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, plain) {
			t.Fatalf("round trip mismatch at size %d", size)
		}
	}
}

func TestOpenRejectsCorruptedIV(t *testing.T) {
	c, _ := testCipher(t)

	frame, err := c.Seal([]byte("chunk payload"))
	if err != nil {
		t.Fatal(err)
	}
	frame[0] ^= 0xFF

	if _, err := c.Open(frame); err == nil {
		t.Fatal("corrupted IV must fail authentication")
	}
}

func TestOpenRejectsCorruptedCiphertext(t *testing.T) {
	c, _ := testCipher(t)

	frame, err := c.Seal([]byte("chunk payload"))
	if err != nil {
		t.Fatal(err)
	}
	frame[len(frame)-1] ^= 0x01

	if _, err := c.Open(frame); err == nil {
		t.Fatal("corrupted tag must fail authentication")
	}
}

func TestOpenRejectsShortFrame(t *testing.T) {
	c, _ := testCipher(t)

	if _, err := c.Open(make([]byte, IVSize+TagSize-1)); !errors.Is(err, ErrFrameTooShort) {
		t.Fatalf("err = %v, want ErrFrameTooShort", err)
	}
}

func TestSealUsesFreshIVs(t *testing.T) {
	c, _ := testCipher(t)
	plain := []byte("same plaintext")

	a, _ := c.Seal(plain)
	b, _ := c.Seal(plain)
	if bytes.Equal(a[:IVSize], b[:IVSize]) {
		t.Fatal("two seals reused an IV")
	}
}

func TestKeyEncodingRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecodeKey(EncodeKey(key))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, key) {
		t.Fatal("key encode/decode mismatch")
	}
}

func TestDecodeKeyRejectsWrongLength(t *testing.T) {
	if _, err := DecodeKey(EncodeKey([]byte("short"))); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}

func TestNewCipherRejectsWrongKeySize(t *testing.T) {
	if _, err := NewCipher(make([]byte, 16)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}
