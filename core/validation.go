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

import (
	"fmt"
	"strings"
)

// ValidateKey validates a Key.
//
// Validation rules:
//   - Type must not be empty or contain NUL
//   - Identifier must not be empty
func ValidateKey(key Key) error {
	if key.Type == "" {
		return ErrEmptyTypeName
	}
	if strings.ContainsRune(key.Type, 0) {
		return fmt.Errorf("%w: type name contains NUL", ErrMalformedKey)
	}
	if key.Identifier == "" {
		return ErrEmptyIdentifier
	}
	return nil
}

// ValidateSyncStatus returns an error if status is not a declared SyncStatus.
func ValidateSyncStatus(status SyncStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSyncStatus, int(status))
	}
	return nil
}

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - Key must be valid
//   - SyncStatus must be declared
//   - CreationDate must be set
//   - Children must have valid keys
//
// NOT validated:
//   - Payload (opaque; may be empty for objects without fields)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if err := ValidateKey(record.Key()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := ValidateSyncStatus(record.SyncStatus); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if record.CreationDate.IsZero() {
		return fmt.Errorf("%w: creation date not set", ErrInvalidRecord)
	}
	for _, child := range record.Children {
		if err := ValidateKey(child); err != nil {
			return fmt.Errorf("%w: child %q: %w", ErrInvalidRecord, child.String(), err)
		}
	}
	return nil
}
