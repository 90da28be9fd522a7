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


package rekey

import (
	"context"
	"fmt"

	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/storage"
)

// DefaultBatchSize is the number of records handed to each ForEach callback.
const DefaultBatchSize = 100

// RecordIterator walks every record in a store in fixed-size batches.
type RecordIterator struct {
	store     storage.RecordStore
	batchSize int
}

// NewRecordIterator creates an iterator. Non-positive batch sizes fall back
// to DefaultBatchSize.
func NewRecordIterator(store storage.RecordStore, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RecordIterator{store: store, batchSize: batchSize}
}

// All returns every record in the store. The store has no unfiltered scan,
// so the sync status index is read once per status; every record carries
// exactly one status.
func (it *RecordIterator) All(ctx context.Context) ([]*core.Record, error) {
	var all []*core.Record
	for _, status := range core.SyncStatuses() {
		records, err := it.store.FetchBySyncStatus(ctx, status, "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s records: %w", status, err)
		}
		all = append(all, records...)
	}
	return all, nil
}

// Count returns the number of records ForEach would visit.
func (it *RecordIterator) Count(ctx context.Context) (int, error) {
	records, err := it.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// ForEach calls fn with successive batches of every record. Iteration stops
// at the first error from fn or when ctx is done. The record set is read
// once up front, so records fn rewrites are not visited again.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.Record) error) error {
	records, err := it.All(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(records); start += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+it.batchSize, len(records))
		if err := fn(records[start:end]); err != nil {
			return err
		}
	}
	return nil
}
