package quote

import (
	"crypto/sha1"
	"encoding/hex"
)

// idSeparator joins text and author before hashing. It is the printable
// "symbol for unit separator" so ids match those already shared as links.
const idSeparator = "␟"

// idLen is the number of hex characters kept from the digest.
const idLen = 10

// ID derives the short stable identifier for a (text, author) pair.
func ID(text, author string) string {
	sum := sha1.Sum([]byte(text + idSeparator + author))
	return hex.EncodeToString(sum[:])[:idLen]
}
