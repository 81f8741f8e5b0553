package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// KindEventDigest is the only crystal kind produced by the crystallizer.
const KindEventDigest = "event_digest"

// Hash computes the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Signature computes the content address of a crystal body: the hash of
// the canonical serialization of {version, kind, payload} ONLY. The
// signature field itself and created_at are never part of the hashed
// bytes, so a crystal can be verified from its own file.
func Signature(version, kind string, payload map[string]any) (string, error) {
	body := map[string]any{
		"version": version,
		"kind":    kind,
		"payload": payload,
	}
	canonical, err := MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("signature: failed to marshal body: %w", err)
	}
	return Hash(canonical), nil
}

// CoerceInt interprets a value read from a tolerant JSON source as an
// integer. Returns def when the value does not parse.
func CoerceInt(v any, def int) int {
	n, ok := ParseInt(v)
	if !ok {
		return def
	}
	return n
}

// ParseInt reports whether a tolerantly-parsed JSON value is an integer.
// encoding/json delivers numbers as float64; only integral values count.
func ParseInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == float64(int64(val)) {
			return int(val), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
