// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// crypto.go — AES-256-GCM encryption of envelope payloads before they
// leave the process for L2 (Redis) or L3 (PostgreSQL). L1 keeps
// plaintext envelopes; it never crosses a process boundary.

package anybox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Encryptor encrypts and decrypts envelope payload bytes.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AES256GCM implements AES-256-GCM authenticated encryption.
type AES256GCM struct {
	block cipher.Block
}

// NewAES256GCM creates an AES-256-GCM encryptor from a 32-byte key.
func NewAES256GCM(key []byte) (*AES256GCM, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("anybox: encryption key must be exactly 32 bytes (got %d)", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AES256GCM{block: block}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with a random nonce.
// Output: nonce (12 bytes) || ciphertext.
func (e *AES256GCM) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := cipher.NewGCM(e.block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext produced by Encrypt.
func (e *AES256GCM) Decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := cipher.NewGCM(e.block)
	if err != nil {
		return nil, err
	}
	nsize := gcm.NonceSize()
	if len(ciphertext) < nsize {
		return nil, fmt.Errorf("anybox: ciphertext too short")
	}
	return gcm.Open(nil, ciphertext[:nsize], ciphertext[nsize:], nil)
}
