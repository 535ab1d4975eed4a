package eventstore

import (
	"crypto/rand"
	"encoding/base64"
)

const defaultIDSize = 11

// IDGenerator produces opaque, short, URL-safe strings using
// base64.RawURLEncoding's character set, directly from that encoding
// rather than rejection-sampling a custom alphabet, the same way the
// teacher's membership/password.go draws salt bytes straight from
// crypto/rand instead of reaching for a third-party token library.
type IDGenerator interface {
	Generate() string
}

type randomIDGenerator struct {
	size int
}

// NewIDGenerator returns an IDGenerator producing collision-resistant,
// URL-safe opaque strings of the given length in characters (default ≈ 11
// when size <= 0).
func NewIDGenerator(size int) IDGenerator {
	if size <= 0 {
		size = defaultIDSize
	}
	return &randomIDGenerator{size: size}
}

func (g *randomIDGenerator) Generate() string {
	// base64.RawURLEncoding emits 4 chars per 3 bytes; over-allocate then
	// trim so Generate() always returns exactly g.size characters.
	nbytes := (g.size*3)/4 + 3
	buf := make([]byte, nbytes)
	if _, err := rand.Read(buf); err != nil {
		panic("eventstore: failed to read random bytes: " + err.Error())
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return encoded[:g.size]
}
