package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidIdentityKey(t *testing.T) {
	// generate a real ed25519 key pair
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tests := []struct {
		name     string
		detail   string
		key      string
		expected bool
	}{
		{
			name:     "valid key",
			detail:   "a freshly generated public key is a valid point",
			key:      hex.EncodeToString(pub),
			expected: true,
		},
		{
			name:     "0x prefix",
			detail:   "the 0x prefix is tolerated",
			key:      "0x" + hex.EncodeToString(pub),
			expected: true,
		},
		{
			name:     "empty",
			detail:   "no key",
			key:      "",
			expected: false,
		},
		{
			name:     "not hex",
			detail:   "the key is not hex encoded",
			key:      strings.Repeat("zz", 32),
			expected: false,
		},
		{
			name:     "wrong length",
			detail:   "the key is 16 bytes",
			key:      hex.EncodeToString(pub[:16]),
			expected: false,
		},
		{
			name:     "identity point",
			detail:   "the neutral element is of small order",
			key:      "01" + strings.Repeat("00", 31),
			expected: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// execute the function call and compare got vs expected
			require.Equal(t, test.expected, ValidIdentityKey(test.key))
		})
	}
}
