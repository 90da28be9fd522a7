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


package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Key identifies a record. Type and Identifier together form the primary key.
type Key struct {
	Type       string
	Identifier string
}

// String returns the key as "Type/Identifier".
func (k Key) String() string {
	return k.Type + "/" + k.Identifier
}

// ParseKey parses a key in the "Type/Identifier" form produced by Key.String.
// The identifier may itself contain slashes.
func ParseKey(s string) (Key, error) {
	typeName, identifier, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, ErrMalformedKey
	}
	key := Key{Type: typeName, Identifier: identifier}
	if err := ValidateKey(key); err != nil {
		return Key{}, err
	}
	return key, nil
}

// NewIdentifier returns a random identifier suitable for objects that have
// no natural one.
func NewIdentifier() string {
	return uuid.NewString()
}

// Digest computes a 64-bit BLAKE2b digest of an unencrypted payload.
// Identical payloads always produce identical digests.
func Digest(payload []byte) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(payload)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Record is the storage-level representation of one identifiable object.
type Record struct {
	Type             string
	Identifier       string
	Payload          string     // Encoded fields after the encryption hook ran
	CreationDate     time.Time  // Set once when the record is first inserted
	ModificationDate time.Time  // Updated whenever Payload or Children change
	SyncStatus       SyncStatus // External sync bookkeeping, independent of Payload
	Children         []Key      // Records referenced from Payload, first-seen order
	Digest           uint64     // Digest of the unencrypted payload
}

// Key returns the record's primary key.
func (r *Record) Key() Key {
	return Key{Type: r.Type, Identifier: r.Identifier}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Children != nil {
		c.Children = make([]Key, len(r.Children))
		copy(c.Children, r.Children)
	}
	return &c
}
