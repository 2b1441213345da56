package fetch

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Encrypted source container:
// magic(8) + salt(16) + nonce(12) + ciphertext||tag(16).
// Key derivation is PBKDF2-SHA256, 100000 iterations, 32-byte key.
var gcmMagic = []byte("GCM3NCR0")

const (
	saltLen        = 16
	nonceLen       = 12
	tagLen         = 16
	pbkdf2Iter     = 100000
	pbkdf2KeyBytes = 32
)

func isEncrypted(data []byte) bool {
	return len(data) >= len(gcmMagic) && bytes.Equal(data[:len(gcmMagic)], gcmMagic)
}

func decrypt(data []byte, password string) ([]byte, error) {
	minLen := len(gcmMagic) + saltLen + nonceLen + tagLen
	if len(data) < minLen {
		return nil, fmt.Errorf("encrypted source too short: %d bytes", len(data))
	}
	off := len(gcmMagic)
	salt := data[off : off+saltLen]
	nonce := data[off+saltLen : off+saltLen+nonceLen]
	ciphertext := data[off+saltLen+nonceLen:]

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iter, pbkdf2KeyBytes, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt source: %w", err)
	}
	return plain, nil
}
