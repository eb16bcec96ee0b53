package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniffMimeHTTP(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffMimeHTTP([]byte{0xFF, 0xD8, 0xFF}))
	assert.Equal(t, "image/png", SniffMimeHTTP([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, "application/octet-stream", SniffMimeHTTP([]byte("plain text")))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}

func TestSHA256Hex(t *testing.T) {
	h := SHA256Hex([]byte("schedule"))
	assert.Len(t, h, 64)
	assert.Equal(t, h, SHA256Hex([]byte("schedule")))
	assert.NotEqual(t, h, SHA256Hex([]byte("other")))
}
