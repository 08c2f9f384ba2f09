// Package qrtoken encodes login session tokens before they are embedded in a
// QR payload URL, and decodes them back on the scanning side.
//
// The transform is a deterministic, reversible obfuscation so the raw token is
// not readable in a photographed QR code. It is a formatting concern, the
// security boundary remains the token's entropy and its validity window.
package qrtoken

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// Version of the encoded payload format.
const Version = "1"

// Token length bounds accepted by Decode. Tokens are base58 strings out of
// session.SecureToken, a payload outside these bounds is garbage.
const (
	minTokenLength = 8
	maxTokenLength = 128
)

const base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ErrDecode is returned when an encoded token cannot be decoded.
// The input comes from a camera/QR-reader pipeline and can be anything.
var ErrDecode = errors.New("qrtoken: malformed encoded token")

// Encode transforms the raw token into its URL-safe encoded form.
func Encode(token string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(Version + ":" + token))
}

// Decode inverts Encode. It returns ErrDecode on any malformed or truncated
// input, never a token-shaped value made of garbage.
func Decode(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(ErrDecode, err.Error())
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] != Version {
		return "", errors.Wrap(ErrDecode, "unsupported payload version")
	}

	token := parts[1]
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return "", errors.Wrap(ErrDecode, "token length out of bounds")
	}
	for _, r := range token {
		if !strings.ContainsRune(base58, r) {
			return "", errors.Wrap(ErrDecode, "token contains invalid characters")
		}
	}

	return token, nil
}

// IsDecodeError returns true if err comes from Decode.
func IsDecodeError(err error) bool {
	return errors.Cause(err) == ErrDecode
}
