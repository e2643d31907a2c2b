package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// hmacSHA256Hex computes the hex-encoded HMAC-SHA256 of body under secret.
func hmacSHA256Hex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHexSignature checks a raw hex HMAC signature in constant time.
func verifyHexSignature(secret string, body []byte, signature string) bool {
	expected := hmacSHA256Hex(secret, body)
	return secureCompare(signature, expected)
}

// verifyPrefixedSignature checks a "sha256=<hex>" HMAC signature in constant
// time. The prefix itself must match exactly.
func verifyPrefixedSignature(secret string, body []byte, signature string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	return verifyHexSignature(secret, body, strings.TrimPrefix(signature, prefix))
}

// secureCompare reports whether two strings are equal without leaking the
// position of the first mismatch through timing.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
