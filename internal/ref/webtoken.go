// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ref

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Mail web UI tokens are a number written in a vowel-less 40-character
// alphabet. Re-expressing that number in the 64-character base64
// alphabet and base64-decoding the result yields an internal descriptor
// like "thread-f:1851234526825889641". The decimal after thread-f is
// the API thread ID in decimal; thread-a descriptors (self-sent mail)
// carry an opaque value with no API mapping.
const (
	webTokenAlphabet = "BCDFGHJKLMNPQRSTVWXZbcdfghjklmnpqrstvwxz"
	base64Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

var convertiblePattern = regexp.MustCompile(`(?:thread|msg)-f:(\d+)`)

// ConvertWebToken converts a mail web UI token to the 16-hex API thread
// ID. It returns ErrNotConvertible for thread-a tokens and
// ErrInvalidInput for tokens outside the web alphabet.
func ConvertWebToken(token string) (string, error) {
	decoded, err := decodeWebToken(token)
	if err != nil {
		return "", err
	}

	m := convertiblePattern.FindStringSubmatch(decoded)
	if m == nil {
		return "", fmt.Errorf("token decodes to %q: %w", descriptorPrefix(decoded), ErrNotConvertible)
	}

	n, ok := new(big.Int).SetString(m[1], 10)
	if !ok {
		return "", fmt.Errorf("non-numeric thread descriptor %q: %w", decoded, ErrInvalidInput)
	}

	hex := n.Text(16)
	// API thread IDs are exactly 16 hex chars.
	if len(hex) < 16 {
		hex = strings.Repeat("0", 16-len(hex)) + hex
	}
	return hex[len(hex)-16:], nil
}

// decodeWebToken performs the base-40 to base-64 re-encoding and the
// final base64 decode.
func decodeWebToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty web token: %w", ErrInvalidInput)
	}

	base := big.NewInt(int64(len(webTokenAlphabet)))
	value := new(big.Int)
	for _, c := range token {
		idx := strings.IndexRune(webTokenAlphabet, c)
		if idx < 0 {
			return "", fmt.Errorf("web token %q has character %q outside its alphabet: %w", token, c, ErrInvalidInput)
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(int64(idx)))
	}

	// Re-express in base 64 digits, most significant first.
	var digits []byte
	sixtyFour := big.NewInt(64)
	mod := new(big.Int)
	for value.Sign() > 0 {
		value.DivMod(value, sixtyFour, mod)
		digits = append(digits, base64Alphabet[mod.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	b64 := string(digits)
	if pad := len(b64) % 4; pad != 0 {
		b64 += strings.Repeat("=", 4-pad)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("web token %q does not decode: %w", token, ErrInvalidInput)
	}

	decoded := string(raw)
	if !strings.Contains(decoded, "thread-") {
		decoded = "thread-" + decoded
	}
	return decoded, nil
}

// descriptorPrefix trims the decoded descriptor for error messages so a
// full opaque value is not echoed back.
func descriptorPrefix(decoded string) string {
	if i := strings.Index(decoded, ":"); i > 0 {
		return decoded[:i]
	}
	if len(decoded) > 12 {
		return decoded[:12]
	}
	return decoded
}
