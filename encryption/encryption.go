// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package encryption provides the hook through which record payloads pass
// before they reach storage.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key")
	ErrMalformedCipher   = errors.New("malformed ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrMissingPassphrase = errors.New("missing passphrase")
)

// KeySize is the length of keys produced by DeriveKey (AES-256).
const KeySize = 32

// Encryptor transforms payload bytes into the text stored in a record and back.
// Decrypt(Encrypt(b)) must return b.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(stored string) ([]byte, error)
}

type passthrough struct{}

// Passthrough stores payload bytes unchanged.
var Passthrough Encryptor = passthrough{}

func (passthrough) Encrypt(plaintext []byte) (string, error) {
	return string(plaintext), nil
}

func (passthrough) Decrypt(stored string) ([]byte, error) {
	return []byte(stored), nil
}

// AESGCM seals payloads with AES-GCM under a fixed key. Each call to Encrypt
// uses a fresh random nonce; the stored form is base64(nonce || ciphertext).
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AESGCM encryptor. The key must be 16, 24 or 32 bytes.
func NewAESGCM(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &AESGCM{aead: aead}, nil
}

func (a *AESGCM) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := a.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (a *AESGCM) Decrypt(stored string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCipher, err)
	}
	if len(sealed) < a.aead.NonceSize()+a.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedCipher, len(sealed))
	}
	nonce, ciphertext := sealed[:a.aead.NonceSize()], sealed[a.aead.NonceSize():]
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// DeriveKey stretches a passphrase into a KeySize key with argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// FromPassphrase derives a key from passphrase and salt and returns an AESGCM
// encryptor for it.
func FromPassphrase(passphrase, salt []byte) (*AESGCM, error) {
	if len(passphrase) == 0 {
		return nil, ErrMissingPassphrase
	}
	return NewAESGCM(DeriveKey(passphrase, salt))
}
