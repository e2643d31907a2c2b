package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyHexSignature(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"event_name":"user_send_text"}`)

	assert.True(t, verifyHexSignature(secret, body, hmacSHA256Hex(secret, body)))
	assert.False(t, verifyHexSignature(secret, body, hmacSHA256Hex("wrong-secret", body)))
	assert.False(t, verifyHexSignature(secret, []byte("tampered"), hmacSHA256Hex(secret, body)))
	assert.False(t, verifyHexSignature(secret, body, ""))
}

func TestVerifyPrefixedSignature(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"object":"page"}`)
	valid := "sha256=" + hmacSHA256Hex(secret, body)

	assert.True(t, verifyPrefixedSignature(secret, body, valid))
	assert.False(t, verifyPrefixedSignature(secret, body, hmacSHA256Hex(secret, body)), "prefix is mandatory")
	assert.False(t, verifyPrefixedSignature(secret, body, "sha1="+hmacSHA256Hex(secret, body)))
	assert.False(t, verifyPrefixedSignature(secret, body, "sha256=deadbeef"))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("token", "token"))
	assert.False(t, secureCompare("token", "Token"))
	assert.False(t, secureCompare("token", "token2"))
	assert.False(t, secureCompare("", "token"))
	assert.True(t, secureCompare("", ""))
}
