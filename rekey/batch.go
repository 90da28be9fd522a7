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
	"log/slog"
	"time"

	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage"
)

// BatchResult counts what happened to the records of one batch.
type BatchResult struct {
	Rekeyed int // re-encrypted with the new key
	Current int // already readable with the new key
	Skipped int // readable with neither key
}

// BatchProcessor re-encrypts one batch of records and commits it.
type BatchProcessor struct {
	store          storage.RecordStore
	from           encryption.Encryptor
	to             encryption.Encryptor
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of commit attempts per batch
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store storage.RecordStore, from, to encryption.Encryptor, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		store:          store,
		from:           from,
		to:             to,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process re-encrypts every record in the batch and commits the result.
// Records already sealed with the new key are left alone, so an interrupted
// run can be repeated. Records that open with neither key are skipped and
// counted. Failing to seal with the new key aborts the batch.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.Record) (BatchResult, error) {
	var result BatchResult
	if len(records) == 0 {
		return result, nil
	}

	for _, record := range records {
		plaintext, current, err := bp.open(record)
		if err != nil {
			bp.logger.WarnContext(ctx, "skipping record that failed to decrypt", "key", record.Key(), "err", err)
			result.Skipped++
			continue
		}
		if current {
			result.Current++
			continue
		}

		sealed, err := bp.to.Encrypt(plaintext)
		if err != nil {
			return result, fmt.Errorf("failed to encrypt %s: %w", record.Key(), err)
		}

		updated := record.Clone()
		updated.Payload = sealed
		if err := bp.store.Update(ctx, updated); err != nil {
			return result, fmt.Errorf("failed to stage %s: %w", record.Key(), err)
		}
		result.Rekeyed++
	}

	if result.Rekeyed == 0 {
		return result, nil
	}

	err := RetryWithBackoff(ctx, func() error {
		return bp.store.Commit(ctx)
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return result, fmt.Errorf("failed to commit batch after %d attempts: %w", bp.maxRetries, err)
	}

	return result, nil
}

// Check classifies the batch the way Process would without staging
// anything. Rekeyed counts the records Process would re-encrypt.
func (bp *BatchProcessor) Check(ctx context.Context, records []*core.Record) BatchResult {
	var result BatchResult
	for _, record := range records {
		_, current, err := bp.open(record)
		switch {
		case err != nil:
			bp.logger.WarnContext(ctx, "record cannot be decrypted", "key", record.Key(), "err", err)
			result.Skipped++
		case current:
			result.Current++
		default:
			result.Rekeyed++
		}
	}
	return result
}

// open returns the plaintext of record. current reports that the payload is
// already sealed with the new key.
func (bp *BatchProcessor) open(record *core.Record) (plaintext []byte, current bool, err error) {
	plaintext, err = unseal(bp.from, record)
	if err == nil {
		return plaintext, false, nil
	}
	if p, nerr := unseal(bp.to, record); nerr == nil {
		return p, true, nil
	}
	return nil, false, err
}

func unseal(enc encryption.Encryptor, record *core.Record) ([]byte, error) {
	plaintext, err := enc.Decrypt(record.Payload)
	if err != nil {
		return nil, err
	}
	if core.Digest(plaintext) != record.Digest {
		return nil, ErrDigestMismatch
	}
	return plaintext, nil
}
