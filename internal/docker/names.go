package docker

import (
	"crypto/rand"
	"encoding/hex"
)

// generateName returns a container name like "clowdy-sandbox-3f9c2a1b0d4e".
// The prefix makes pool sandboxes easy to spot in docker ps.
func generateName() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "clowdy-sandbox-" + hex.EncodeToString(b)
}
