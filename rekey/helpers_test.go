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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage/badger"
)

var errCommitFailed = errors.New("commit refused")

// flakyStore fails the first failures commits.
type flakyStore struct {
	*badger.RecordStore
	failures int
	commits  int
}

func (s *flakyStore) Commit(ctx context.Context) error {
	s.commits++
	if s.commits <= s.failures {
		return errCommitFailed
	}
	return s.RecordStore.Commit(ctx)
}

func newStore(t *testing.T) *badger.RecordStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newAESGCM(t *testing.T, seed byte) *encryption.AESGCM {
	t.Helper()
	key := make([]byte, encryption.KeySize)
	for i := range key {
		key[i] = seed + byte(i)
	}
	enc, err := encryption.NewAESGCM(key)
	require.NoError(t, err)
	return enc
}

// seed inserts n committed records sealed with enc. Statuses rotate so
// every sync status bucket is populated.
func seed(t *testing.T, store *badger.RecordStore, enc encryption.Encryptor, n int) map[core.Key][]byte {
	t.Helper()
	ctx := context.Background()
	statuses := core.SyncStatuses()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	plaintexts := make(map[core.Key][]byte, n)
	for i := 0; i < n; i++ {
		plaintext := []byte(fmt.Sprintf("payload-%03d", i))
		sealed, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		record := &core.Record{
			Type:             "Note",
			Identifier:       fmt.Sprintf("n%03d", i),
			Payload:          sealed,
			CreationDate:     created.Add(time.Duration(i) * time.Minute),
			ModificationDate: created.Add(time.Duration(i) * time.Minute),
			SyncStatus:       statuses[i%len(statuses)],
			Digest:           core.Digest(plaintext),
		}
		require.NoError(t, store.Insert(ctx, record))
		plaintexts[record.Key()] = plaintext
	}
	require.NoError(t, store.Commit(ctx))
	return plaintexts
}

func fastConfig(batchSize int) *Config {
	return &Config{
		BatchSize:      batchSize,
		ReportInterval: 1,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}
