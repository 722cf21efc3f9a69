package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"filippo.io/edwards25519"
)

// An identity key is an ed25519 public key an agent chooses to publish. The node never verifies signatures with it,
// it only checks that the key is a usable curve point before granting the identity multiplier in the rank formula.

// ValidIdentityKey() returns true if the hex string decodes to an ed25519 public key that is a point on the curve
// and is not of small order
func ValidIdentityKey(hexKey string) bool {
	bz, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil || len(bz) != ed25519.PublicKeySize {
		return false
	}
	// interpret the key as a point on the Edwards25519 curve
	p, err := new(edwards25519.Point).SetBytes(bz)
	if err != nil {
		return false
	}
	// multiplying a small order point by the cofactor lands on the identity
	return new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) != 1
}
