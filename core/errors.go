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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrNotFound indicates that no record exists for a key.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyTypeName indicates a key or object with an empty type name.
	ErrEmptyTypeName = errors.New("type name cannot be empty")

	// ErrEmptyIdentifier indicates a key or object with an empty identifier.
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")

	// ErrMalformedKey indicates a key string that is not in "Type/Identifier" form.
	ErrMalformedKey = errors.New("malformed key")

	// ErrInvalidSyncStatus indicates an undeclared SyncStatus value.
	ErrInvalidSyncStatus = errors.New("invalid sync status")

	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")
)

// Mapping errors, wrapped by MappingError.
var (
	// ErrTypeMismatch indicates a stored value whose kind differs from the target field.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingField indicates a required field absent from the stored payload.
	ErrMissingField = errors.New("missing required field")

	// ErrUnknownType indicates a type name with no registered factory.
	ErrUnknownType = errors.New("unknown type")

	// ErrNotIdentifiable indicates an object slot holding a value without a usable key.
	ErrNotIdentifiable = errors.New("object is not identifiable")

	// ErrIdentifierMismatch indicates a decoded object whose identifier differs from its record.
	ErrIdentifierMismatch = errors.New("identifier mismatch")
)

// MappingError reports a structural mismatch between a value and its payload.
type MappingError struct {
	Type string // Type name of the object being mapped
	Path string // Dotted field path, e.g. "owner.tags[2]"
	Err  error
}

func (e *MappingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mapping %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("mapping %s at %s: %v", e.Type, e.Path, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError reports a payload reference to a record that does not exist.
type DanglingReferenceError struct {
	From Key // Record holding the reference
	To   Key // Missing record
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference from %s to %s", e.From, e.To)
}

// NotFoundError reports an operation targeting a key with no record.
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError reports a failure in the underlying record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
