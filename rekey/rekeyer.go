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
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage"
)

// Config holds configuration for a rekey run.
type Config struct {
	// BatchSize is the number of records committed together
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of commit attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarises a finished run.
type Result struct {
	Total   int
	Rekeyed int
	Current int
	Skipped int
}

// Migrated reports whether any record is now sealed with the new key.
func (r *Result) Migrated() bool {
	return r.Rekeyed > 0 || r.Current > 0
}

// Rekeyer moves every payload in a store from one encryptor to another.
type Rekeyer struct {
	store     storage.RecordStore
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
}

// NewRekeyer creates a new rekeyer.
// progress: where to write progress output (typically os.Stderr)
func NewRekeyer(store storage.RecordStore, from, to encryption.Encryptor, config *Config, progress io.Writer, logger *slog.Logger) (*Rekeyer, error) {
	if from == nil || to == nil {
		return nil, ErrEncryptorRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Rekeyer{
		store:     store,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, from, to, config.MaxRetries, config.RetryDelay, logger),
		iterator:  NewRecordIterator(store, config.BatchSize),
	}, nil
}

// Check reads every record with the old and new keys without writing
// anything. Rekeyed counts the records Run would re-encrypt; a non-zero
// Skipped means Run would leave records behind.
func (r *Rekeyer) Check(ctx context.Context) (*Result, error) {
	result := &Result{}
	err := r.iterator.ForEach(ctx, func(batch []*core.Record) error {
		br := r.processor.Check(ctx, batch)
		result.Total += len(batch)
		result.Rekeyed += br.Rekeyed
		result.Current += br.Current
		result.Skipped += br.Skipped
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to check records: %w", err)
	}
	return result, nil
}

// Run re-encrypts every record in the store. Batches committed before an
// error stay committed; the returned Result counts them. Records already
// sealed with the new key count as Current, so a failed run can be repeated.
func (r *Rekeyer) Run(ctx context.Context) (*Result, error) {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	result := &Result{Total: total}
	if result.Total == 0 {
		fmt.Fprintf(r.progress, "No records found in garage (0 records)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting rekey of %d records (batch size: %d)\n",
		result.Total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, result.Total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(batch []*core.Record) error {
		br, err := r.processor.Process(ctx, batch)
		result.Skipped += br.Skipped
		tracker.Skip(br.Skipped)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		result.Rekeyed += br.Rekeyed
		result.Current += br.Current
		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return result, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Rekey complete. Rekeyed %d of %d records in %v (%d already current, %d skipped)\n",
		result.Rekeyed, result.Total, elapsed.Round(time.Millisecond), result.Current, result.Skipped)

	return result, nil
}
