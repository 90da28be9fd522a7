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


package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/storage"
)

type entryState uint8

const (
	stateClean entryState = iota
	stateDirty
	stateDeleted
)

// entry is one record in the working set.
type entry struct {
	record *core.Record // nil once deleted
	unit   int
	state  entryState
	onDisk bool
}

// unit is one opened storage unit.
type unit struct {
	desc    storage.Description
	backend *Backend
}

// RecordStore implements storage.RecordStore on one or more BadgerDB units.
// Records loaded or staged are kept in an in-memory working set; only Commit
// writes to BadgerDB.
type RecordStore struct {
	units   []*unit
	entries map[core.Key]*entry
	closed  bool
	logger  *slog.Logger
}

var _ storage.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore over already opened backends. The
// store takes ownership of the backends and closes them on Close.
func NewRecordStore(descs []storage.Description, backends []*Backend, logger *slog.Logger) (*RecordStore, error) {
	if len(backends) == 0 {
		return nil, storage.ErrNoStorageUnits
	}
	if len(descs) != len(backends) {
		return nil, fmt.Errorf("%w: %d descriptions for %d backends", storage.ErrInvalidDescription, len(descs), len(backends))
	}
	if logger == nil {
		logger = slog.Default()
	}
	units := make([]*unit, len(backends))
	for i := range backends {
		units[i] = &unit{desc: descs[i], backend: backends[i]}
	}
	return &RecordStore{
		units:   units,
		entries: make(map[core.Key]*entry),
		logger:  logger,
	}, nil
}

// Insert stages a new record in the first storage unit.
func (s *RecordStore) Insert(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	key := record.Key()
	e, err := s.load(key)
	if err != nil {
		return err
	}
	if e != nil && e.state != stateDeleted {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, key)
	}
	if e == nil {
		e = &entry{unit: 0}
		s.entries[key] = e
	}
	e.record = record.Clone()
	e.state = stateDirty
	return nil
}

// Get returns a copy of the record stored under key.
func (s *RecordStore) Get(ctx context.Context, key core.Key) (*core.Record, error) {
	e, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if e == nil || e.state == stateDeleted {
		return nil, &core.NotFoundError{Key: key}
	}
	return e.record.Clone(), nil
}

// FetchByType returns copies of every record of typeName.
func (s *RecordStore) FetchByType(ctx context.Context, typeName string) ([]*core.Record, error) {
	if typeName == "" {
		return nil, core.ErrEmptyTypeName
	}
	return s.fetch(func(tx *badger.Txn, collect func(*core.Record) error) error {
		return scanRecords(tx, makeRecordTypePrefix(typeName), collect)
	}, func(r *core.Record) bool {
		return r.Type == typeName
	})
}

// FetchBySyncStatus returns copies of every record with the given status,
// restricted to typeName unless it is empty.
func (s *RecordStore) FetchBySyncStatus(ctx context.Context, status core.SyncStatus, typeName string) ([]*core.Record, error) {
	if err := core.ValidateSyncStatus(status); err != nil {
		return nil, err
	}
	return s.fetch(func(tx *badger.Txn, collect func(*core.Record) error) error {
		return scanKeys(tx, makeSyncPrefix(status, typeName), func(b []byte) error {
			_, key, err := parseSyncKey(b)
			if err != nil {
				return err
			}
			if _, ok := s.entries[key]; ok {
				return nil
			}
			record, err := readRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil || record.SyncStatus != status {
				// Index entry left behind by an interrupted write.
				return nil
			}
			return collect(record)
		})
	}, func(r *core.Record) bool {
		return r.SyncStatus == status && (typeName == "" || r.Type == typeName)
	})
}

// fetch merges records found on disk by scan with the working set entries
// accepted by match. Working set entries shadow disk records.
func (s *RecordStore) fetch(
	scan func(tx *badger.Txn, collect func(*core.Record) error) error,
	match func(*core.Record) bool,
) ([]*core.Record, error) {
	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	found := make(map[core.Key]*core.Record)
	for _, u := range s.units {
		err := u.backend.WithTx(func(tx *badger.Txn) error {
			return scan(tx, func(record *core.Record) error {
				key := record.Key()
				if _, ok := s.entries[key]; ok {
					return nil
				}
				if _, ok := found[key]; !ok {
					found[key] = record
				}
				return nil
			})
		}, false)
		if err != nil {
			return nil, &core.StoreError{Op: "fetch", Err: fmt.Errorf("unit %s: %w", u.desc.Name, err)}
		}
	}

	for key, e := range s.entries {
		if e.state != stateDeleted && match(e.record) {
			found[key] = e.record.Clone()
		}
	}

	records := make([]*core.Record, 0, len(found))
	for _, record := range found {
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

// Update stages a replacement for an existing record. The record keeps the
// storage unit it was loaded from.
func (s *RecordStore) Update(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	key := record.Key()
	e, err := s.load(key)
	if err != nil {
		return err
	}
	if e == nil || e.state == stateDeleted {
		return &core.NotFoundError{Key: key}
	}
	e.record = record.Clone()
	e.state = stateDirty
	return nil
}

// Delete stages removal of the record stored under key.
func (s *RecordStore) Delete(ctx context.Context, key core.Key) error {
	e, err := s.load(key)
	if err != nil {
		return err
	}
	if e == nil || e.state == stateDeleted {
		return &core.NotFoundError{Key: key}
	}
	s.markDeleted(key, e)
	return nil
}

// DeleteAll stages removal of every record of the named types, or of every
// record when no type is named.
func (s *RecordStore) DeleteAll(ctx context.Context, typeNames ...string) error {
	if s.closed {
		return storage.ErrStorageClosed
	}

	prefixes := [][]byte{makeRecordTypePrefix("")}
	if len(typeNames) > 0 {
		prefixes = prefixes[:0]
		for _, typeName := range typeNames {
			if typeName == "" {
				return core.ErrEmptyTypeName
			}
			prefixes = append(prefixes, makeRecordTypePrefix(typeName))
		}
	}

	for i, u := range s.units {
		err := u.backend.WithTx(func(tx *badger.Txn) error {
			for _, prefix := range prefixes {
				err := scanKeys(tx, prefix, func(b []byte) error {
					key, err := parseRecordKey(b)
					if err != nil {
						return err
					}
					if _, ok := s.entries[key]; !ok {
						s.entries[key] = &entry{unit: i, state: stateClean, onDisk: true}
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		}, false)
		if err != nil {
			return &core.StoreError{Op: "delete all", Err: fmt.Errorf("unit %s: %w", u.desc.Name, err)}
		}
	}

	for key, e := range s.entries {
		if e.state == stateDeleted {
			continue
		}
		if len(typeNames) == 0 || slices.Contains(typeNames, key.Type) {
			s.markDeleted(key, e)
		}
	}
	return nil
}

// markDeleted stages removal of e. Entries that never reached disk are
// simply forgotten.
func (s *RecordStore) markDeleted(key core.Key, e *entry) {
	if !e.onDisk {
		delete(s.entries, key)
		return
	}
	e.record = nil
	e.state = stateDeleted
}

// Commit writes staged mutations, one transaction per storage unit. Units
// that fail keep their mutations staged.
func (s *RecordStore) Commit(ctx context.Context) error {
	if s.closed {
		return storage.ErrStorageClosed
	}

	pending := make([][]core.Key, len(s.units))
	for key, e := range s.entries {
		if e.state != stateClean {
			pending[e.unit] = append(pending[e.unit], key)
		}
	}

	var errs []error
	for i, keys := range pending {
		if len(keys) == 0 {
			continue
		}
		u := s.units[i]
		if err := s.commitUnit(u, keys); err != nil {
			errs = append(errs, &core.StoreError{Op: "commit", Err: fmt.Errorf("unit %s: %w", u.desc.Name, err)})
			continue
		}
		for _, key := range keys {
			e := s.entries[key]
			if e.state == stateDeleted {
				delete(s.entries, key)
				continue
			}
			e.state = stateClean
			e.onDisk = true
		}
		s.logger.DebugContext(ctx, "committed records", "unit", u.desc.Name, "count", len(keys))
	}
	return errors.Join(errs...)
}

func (s *RecordStore) commitUnit(u *unit, keys []core.Key) error {
	return u.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			e := s.entries[key]
			// The previous status is not tracked, so clear every index slot.
			for _, status := range core.SyncStatuses() {
				if err := tx.Delete(makeSyncKey(status, key)); err != nil {
					return err
				}
			}
			if e.state == stateDeleted {
				if err := tx.Delete(makeRecordKey(key)); err != nil {
					return err
				}
				continue
			}
			if err := tx.Set(makeRecordKey(key), storage.MarshalRecord(e.record)); err != nil {
				return err
			}
			if err := tx.Set(makeSyncKey(e.record.SyncStatus, key), []byte{}); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
		return nil
	}, true)
}

// HasPendingChanges reports whether any mutation is staged.
func (s *RecordStore) HasPendingChanges() bool {
	for _, e := range s.entries {
		if e.state != stateClean {
			return true
		}
	}
	return false
}

// Close closes every storage unit. Staged mutations are discarded.
func (s *RecordStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.entries = nil
	var errs []error
	for _, u := range s.units {
		if err := u.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", u.desc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// load returns the working set entry for key, reading it from disk on first
// access. Returns nil, nil if no unit holds the record.
func (s *RecordStore) load(key core.Key) (*entry, error) {
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if err := core.ValidateKey(key); err != nil {
		return nil, err
	}
	if e, ok := s.entries[key]; ok {
		return e, nil
	}

	for i, u := range s.units {
		var record *core.Record
		err := u.backend.WithTx(func(tx *badger.Txn) error {
			var err error
			record, err = readRecord(tx, key)
			return err
		}, false)
		if err != nil {
			return nil, &core.StoreError{Op: "get", Err: fmt.Errorf("unit %s: %w", u.desc.Name, err)}
		}
		if record != nil {
			e := &entry{record: record, unit: i, state: stateClean, onDisk: true}
			s.entries[key] = e
			return e, nil
		}
	}
	return nil, nil
}

// sortRecords orders records by creation date, then identifier.
func sortRecords(records []*core.Record) {
	slices.SortFunc(records, func(a, b *core.Record) int {
		if c := a.CreationDate.Compare(b.CreationDate); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.Identifier, b.Identifier)
	})
}
