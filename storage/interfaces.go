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


package storage

import (
	"context"

	"github.com/poiesic/garage/core"
)

// RecordStore holds generic records keyed by (type, identifier).
//
// Mutations are staged in a working set and reach durable storage only on
// Commit. Reads see staged mutations. Records passed in and handed out are
// copies; callers may modify them freely.
//
// Implementations are not safe for concurrent use.
type RecordStore interface {
	// Insert stages a new record.
	// Returns ErrDuplicateKey if a record with the same key exists.
	Insert(ctx context.Context, record *core.Record) error

	// Get returns the record stored under key.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, key core.Key) (*core.Record, error)

	// FetchByType returns every record of typeName, ordered by creation
	// date then identifier.
	FetchByType(ctx context.Context, typeName string) ([]*core.Record, error)

	// FetchBySyncStatus returns records with the given status. An empty
	// typeName matches every type. Ordered like FetchByType.
	FetchBySyncStatus(ctx context.Context, status core.SyncStatus, typeName string) ([]*core.Record, error)

	// Update stages a replacement for an existing record.
	// Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, record *core.Record) error

	// Delete stages removal of a record.
	// Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, key core.Key) error

	// DeleteAll stages removal of every record of the named types, or of
	// every record when no type is named.
	DeleteAll(ctx context.Context, typeNames ...string) error

	// Commit writes staged mutations to durable storage. On failure the
	// staged mutations stay pending.
	Commit(ctx context.Context) error

	// HasPendingChanges reports whether any mutation is staged.
	HasPendingChanges() bool

	// Close releases the store. Staged mutations are discarded.
	Close() error
}
