package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// sealedPrefix marks a stored token as AES-GCM sealed. Tokens pasted into
// the profiles table by hand carry no prefix and are read back as-is.
const sealedPrefix = "enc:"

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// SealToken encrypts token for storage. With no key, or an empty token, the
// value is stored unchanged.
func SealToken(key []byte, token string) (string, error) {
	if len(key) == 0 || token == "" {
		return token, nil
	}
	sealed, err := Encrypt([]byte(token), key)
	if err != nil {
		return "", fmt.Errorf("failed to seal token: %w", err)
	}
	return sealedPrefix + sealed, nil
}

// OpenToken reverses SealToken. Unsealed values pass through.
func OpenToken(key []byte, stored string) (string, error) {
	stored = strings.TrimSpace(stored)
	sealed, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if len(key) == 0 {
		return "", errors.New("token is sealed but no secret key is configured")
	}
	return Decrypt(sealed, key)
}

// Encrypt seals plaintext with AES-GCM and returns base64(nonce || ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return base64.StdEncoding.EncodeToString(aesGCM.Seal(nonce, nonce, plaintext, nil)), nil
}

func Decrypt(encryptedData string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := aesGCM.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return string(plaintext), nil
}

// newGCM accepts 16, 24 or 32 byte keys.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return cipher.NewGCM(block)
}
