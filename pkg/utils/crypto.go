package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// EncryptToken seals an access token for storage. The secret can be any
// length; it is hashed down to an AES-256 key.
func EncryptToken(token, secret string) (string, error) {
	aesGCM, err := newGCM(secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	// nonce || ciphertext, base64 encoded
	sealed := aesGCM.Seal(nonce, nonce, []byte(token), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptToken(stored, secret string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := newGCM(secret)
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

func newGCM(secret string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return aesGCM, nil
}
