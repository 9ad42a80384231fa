package service

import (
	"crypto/rand"
	"encoding/hex"
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

const codeCharset = "abcdefghjkmnpqrstuvwxyz23456789"

// newExtractionCode returns a short random code from an alphabet without
// easily-confused characters.
func newExtractionCode(length int) string {
	if length <= 0 {
		length = 4
	}
	bytes := make([]byte, length)
	_, _ = rand.Read(bytes)
	code := make([]byte, length)
	for i, b := range bytes {
		code[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(code)
}
