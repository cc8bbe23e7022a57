package signaling

import (
	"crypto/rand"
	"log"
	"math/big"
)

// Room ids are short enough to read over a shoulder but drawn from a
// crypto RNG. The alphabet is Crockford-style base32: no 0/O/1/I so ids
// survive being typed by hand.
const (
	roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomIDLength   = 10
)

// NewRoomID returns a fresh random room identifier.
func NewRoomID() string {
	id := make([]byte, roomIDLength)
	for i := range id {
		id[i] = roomIDAlphabet[randomIndex(len(roomIDAlphabet))]
	}
	return string(id)
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}
