package qrtoken_test

import (
	"encoding/base64"
	"testing"

	"github.com/mdouchement/qrbridge/pkg/qrtoken"
	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	tokens := []string{
		"8Yn4mKxLpQ2rVsTdWbGcJhFe",
		"11111111",
		"zzzzzzzzzzzzzzzzzzzzzzzz",
	}

	for _, token := range tokens {
		encoded := qrtoken.Encode(token)
		assert.NotEqual(t, token, encoded)
		// Deterministic.
		assert.Equal(t, encoded, qrtoken.Encode(token))

		decoded, err := qrtoken.Decode(encoded)
		assert.NoError(t, err)
		assert.Equal(t, token, decoded)
	}
}

func TestDecodeMalformed(t *testing.T) {
	payloads := map[string]string{
		"empty":                "",
		"not base64":           "%%%%%%",
		"padded base64":        "MTotest==",
		"no separator":         base64.RawURLEncoding.EncodeToString([]byte("8Yn4mKxLpQ2rVsTdWbGcJhFe")),
		"wrong version":        base64.RawURLEncoding.EncodeToString([]byte("2:8Yn4mKxLpQ2rVsTdWbGcJhFe")),
		"empty token":          base64.RawURLEncoding.EncodeToString([]byte("1:")),
		"too short":            base64.RawURLEncoding.EncodeToString([]byte("1:abc")),
		"forbidden characters": base64.RawURLEncoding.EncodeToString([]byte("1:0OIl+/0OIl+/")),
		"truncated":            qrtoken.Encode("8Yn4mKxLpQ2rVsTdWbGcJhFe")[:5],
	}

	for name, payload := range payloads {
		token, err := qrtoken.Decode(payload)
		assert.Empty(t, token, name)
		assert.Error(t, err, name)
		assert.True(t, qrtoken.IsDecodeError(err), name)
	}
}

func TestIsDecodeError(t *testing.T) {
	_, err := qrtoken.Decode("garbage")
	assert.True(t, qrtoken.IsDecodeError(err))
	assert.False(t, qrtoken.IsDecodeError(nil))
	assert.False(t, qrtoken.IsDecodeError(assert.AnError))
}
