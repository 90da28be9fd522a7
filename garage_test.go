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


package garage

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage"
	"github.com/poiesic/garage/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		g, err := New(nil)
		assert.ErrorIs(t, err, ErrStoreRequired)
		assert.Nil(t, g)
	})

	t.Run("defaults", func(t *testing.T) {
		g := newTestGarage(t)
		assert.True(t, g.Autosave())
		assert.Equal(t, encryption.Passthrough, g.Encryptor())
		assert.Equal(t, []string{"Person", "Task"}, g.Registry().Types())
		assert.NotNil(t, g.Store())
	})

	t.Run("options", func(t *testing.T) {
		registry := codec.NewRegistry()
		g := newTestGarage(t, WithAutosave(false), WithRegistry(registry))
		assert.False(t, g.Autosave())
		assert.Same(t, registry, g.Registry())

		g.SetAutosave(true)
		assert.True(t, g.Autosave())
	})

	t.Run("nil registry", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)
		defer store.Close()
		_, err = New(store, WithRegistry(nil))
		assert.ErrorIs(t, err, ErrRegistryRequired)
	})
}

func TestScenario_TaskAndOwner(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	task := &Task{ID: "t1", Title: "A", Owner: &Person{ID: "p1", Name: "Bob"}}
	require.NoError(t, g.Park(ctx, task))

	got, err := g.Retrieve(ctx, "Task", "t1")
	require.NoError(t, err)
	assert.Equal(t, task, got)

	person, err := g.Retrieve(ctx, "Person", "p1")
	require.NoError(t, err)
	assert.Equal(t, &Person{ID: "p1", Name: "Bob"}, person)

	require.NoError(t, g.Delete(ctx, "Task", "t1"))

	person, err = g.Retrieve(ctx, "Person", "p1")
	require.NoError(t, err)
	assert.Equal(t, &Person{ID: "p1", Name: "Bob"}, person)

	gone, err := g.Retrieve(ctx, "Task", "t1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPark_IdempotentIdentity(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "first"}))
	first, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "t1"})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "second", Tags: []string{"x"}}))

	records, err := g.Store().FetchByType(ctx, "Task")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.CreationDate, records[0].CreationDate)
	assert.Equal(t, clock, records[0].ModificationDate)

	got, err := RetrieveAs[Task](ctx, g, "t1")
	require.NoError(t, err)
	assert.Equal(t, &Task{ID: "t1", Title: "second", Tags: []string{"x"}}, got)
}

func TestPark_UnchangedObjectIsNotRewritten(t *testing.T) {
	g := newTestGarage(t, WithAutosave(false))
	ctx := context.Background()

	task := &Task{ID: "t1", Title: "same", Owner: &Person{ID: "p1", Name: "Bob"}}
	require.NoError(t, g.Park(ctx, task))
	assert.True(t, g.HasPendingChanges())
	g.Save(ctx)
	assert.False(t, g.HasPendingChanges())

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "same", Owner: &Person{ID: "p1", Name: "Bob"}}))
	assert.False(t, g.HasPendingChanges())

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "same", Owner: &Person{ID: "p1", Name: "Robert"}}))
	assert.True(t, g.HasPendingChanges())
}

func TestPark_PreservesSyncStatus(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "v1"}))
	require.NoError(t, g.SetSyncStatus(ctx, "Task", "t1", core.SyncStatusUploaded))
	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "v2"}))

	record, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "t1"})
	require.NoError(t, err)
	assert.Equal(t, core.SyncStatusUploaded, record.SyncStatus)
}

func TestPark_SharedNestedObject(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	bob := &Person{ID: "p1", Name: "Bob"}
	task := &Task{ID: "t1", Owner: bob, Reviewer: bob, Watchers: []*Person{bob, {ID: "p2", Name: "Ann"}}}
	require.NoError(t, g.Park(ctx, task))

	people, err := g.Store().FetchByType(ctx, "Person")
	require.NoError(t, err)
	assert.Len(t, people, 2)

	record, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []core.Key{{Type: "Person", Identifier: "p1"}, {Type: "Person", Identifier: "p2"}}, record.Children)

	got, err := RetrieveAs[Task](ctx, g, "t1")
	require.NoError(t, err)
	assert.Equal(t, task, got)
	assert.Same(t, got.Owner, got.Reviewer)
	assert.Same(t, got.Owner, got.Watchers[0])
}

func TestPark_FirstOccurrenceWins(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	task := &Task{ID: "t1", Owner: &Person{ID: "p1", Name: "first"}, Reviewer: &Person{ID: "p1", Name: "second"}}
	require.NoError(t, g.Park(ctx, task))

	person, err := RetrieveAs[Person](ctx, g, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", person.Name)
}

func TestPark_Cycle(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	alice := &Person{ID: "alice", Name: "Alice"}
	bob := &Person{ID: "bob", Name: "Bob", Friend: alice}
	alice.Friend = bob
	require.NoError(t, g.Park(ctx, alice))

	people, err := g.Store().FetchByType(ctx, "Person")
	require.NoError(t, err)
	assert.Len(t, people, 2)

	got, err := RetrieveAs[Person](ctx, g, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Friend.Name)
	assert.Same(t, got, got.Friend.Friend)
	assert.Equal(t, alice, got)
}

func TestPark_MappingErrorLeavesStoreUntouched(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	task := &Task{ID: "t1", Owner: &Person{ID: "p1"}, Watchers: []*Person{{Name: "no id"}}}
	err := g.Park(ctx, task)
	var mappingErr *core.MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "watchers[0]", mappingErr.Path)
	assert.ErrorIs(t, err, core.ErrNotIdentifiable)

	assert.False(t, g.HasPendingChanges())
	for _, typeName := range []string{"Task", "Person"} {
		records, err := g.Store().FetchByType(ctx, typeName)
		require.NoError(t, err)
		assert.Empty(t, records)
	}

	assert.ErrorIs(t, g.Park(ctx, nil), core.ErrNotIdentifiable)
}

func TestParkAll(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	bob := &Person{ID: "p1", Name: "Bob"}
	require.NoError(t, g.ParkAll(ctx,
		&Task{ID: "t1", Owner: bob},
		&Task{ID: "t2", Owner: bob},
		bob,
	))

	tasks, err := RetrieveAllAs[Task](ctx, g)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Bob", tasks[0].Owner.Name)
	assert.Equal(t, "Bob", tasks[1].Owner.Name)
}

func TestRetrieve(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		obj, err := g.Retrieve(ctx, "Task", "missing")
		require.NoError(t, err)
		assert.Nil(t, obj)

		task, err := RetrieveAs[Task](ctx, g, "missing")
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := g.Retrieve(ctx, "", "t1")
		assert.ErrorIs(t, err, core.ErrEmptyTypeName)
	})

	t.Run("unregistered type", func(t *testing.T) {
		require.NoError(t, g.Store().Insert(ctx, &core.Record{
			Type: "Ghost", Identifier: "g1", CreationDate: time.Now().UTC(),
		}))
		_, err := g.Retrieve(ctx, "Ghost", "g1")
		var mappingErr *core.MappingError
		require.ErrorAs(t, err, &mappingErr)
		assert.ErrorIs(t, err, core.ErrUnknownType)
	})

	t.Run("dangling reference", func(t *testing.T) {
		require.NoError(t, g.Park(ctx, &Task{ID: "t-dangling", Owner: &Person{ID: "p-gone"}}))
		require.NoError(t, g.Delete(ctx, "Person", "p-gone"))

		_, err := g.Retrieve(ctx, "Task", "t-dangling")
		var dangling *core.DanglingReferenceError
		require.ErrorAs(t, err, &dangling)
		assert.Equal(t, core.Key{Type: "Task", Identifier: "t-dangling"}, dangling.From)
		assert.Equal(t, core.Key{Type: "Person", Identifier: "p-gone"}, dangling.To)
	})

	t.Run("identifier mismatch", func(t *testing.T) {
		enc, err := codec.Encode(&Person{ID: "p-real", Name: "Real"})
		require.NoError(t, err)
		require.NoError(t, g.Store().Insert(ctx, &core.Record{
			Type: "Person", Identifier: "p-alias", Payload: string(enc.Payload), CreationDate: time.Now().UTC(),
		}))

		_, err = g.Retrieve(ctx, "Person", "p-alias")
		assert.ErrorIs(t, err, core.ErrIdentifierMismatch)
	})
}

func TestRetrieveAll_SkipsBadRecords(t *testing.T) {
	logger, logs := newTestLogger()
	g := newTestGarage(t, WithLogger(logger))
	ctx := context.Background()

	require.NoError(t, g.ParkAll(ctx, &Task{ID: "good", Title: "ok"}, &Task{ID: "bad", Title: "soon corrupt"}))

	record, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "bad"})
	require.NoError(t, err)
	record.Payload = "garbage"
	require.NoError(t, g.Store().Update(ctx, record))

	objs, err := g.RetrieveAll(ctx, "Task")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "good", objs[0].Identifier())
	assert.Contains(t, logs.String(), "skipping record that failed to decode")
	assert.Contains(t, logs.String(), "Task/bad")
}

func TestSetSyncStatus(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "A", Owner: &Person{ID: "p1", Name: "Bob"}}))
	require.NoError(t, g.Park(ctx, &Task{ID: "t2", Title: "B"}))
	before, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "t1"})
	require.NoError(t, err)

	require.NoError(t, g.SetSyncStatus(ctx, "Task", "t1", core.SyncStatusUploaded))
	require.NoError(t, g.SetSyncStatus(ctx, "Person", "p1", core.SyncStatusUploaded))

	after, err := g.Store().Get(ctx, core.Key{Type: "Task", Identifier: "t1"})
	require.NoError(t, err)
	assert.Equal(t, before.Payload, after.Payload)
	assert.Equal(t, before.CreationDate, after.CreationDate)
	assert.Equal(t, core.SyncStatusUploaded, after.SyncStatus)

	keys := func(records []*core.Record) []string {
		var out []string
		for _, r := range records {
			out = append(out, r.Key().String())
		}
		return out
	}

	uploaded, err := g.Fetch(ctx, core.SyncStatusUploaded, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Task/t1", "Person/p1"}, keys(uploaded))

	uploadedTasks, err := g.Fetch(ctx, core.SyncStatusUploaded, "Task")
	require.NoError(t, err)
	assert.Equal(t, []string{"Task/t1"}, keys(uploadedTasks))

	pending, err := g.Fetch(ctx, core.SyncStatusNeedsUpload, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Task/t2"}, keys(pending))

	// Fetch hands out copies.
	uploaded[0].Payload = "tampered"
	again, err := g.Store().Get(ctx, uploaded[0].Key())
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", again.Payload)

	err = g.SetSyncStatus(ctx, "Task", "missing", core.SyncStatusUploaded)
	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, core.Key{Type: "Task", Identifier: "missing"}, notFound.Key)

	assert.ErrorIs(t, g.SetSyncStatus(ctx, "Task", "t1", core.SyncStatus(9)), core.ErrInvalidSyncStatus)
}

func TestDelete(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	err := g.Delete(ctx, "Task", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T) *Garage {
		g := newTestGarage(t)
		require.NoError(t, g.Park(ctx, &Task{ID: "t1", Owner: &Person{ID: "p1"}}))
		return g
	}

	t.Run("named type", func(t *testing.T) {
		g := seed(t)
		require.NoError(t, g.DeleteAll(ctx, "Task"))
		task, err := g.Retrieve(ctx, "Task", "t1")
		require.NoError(t, err)
		assert.Nil(t, task)
		person, err := g.Retrieve(ctx, "Person", "p1")
		require.NoError(t, err)
		assert.NotNil(t, person)
	})

	t.Run("everything", func(t *testing.T) {
		g := seed(t)
		require.NoError(t, g.DeleteAll(ctx))
		for _, typeName := range []string{"Task", "Person"} {
			objs, err := g.RetrieveAll(ctx, typeName)
			require.NoError(t, err)
			assert.Empty(t, objs)
		}
	})
}

func TestDeleteGraph(t *testing.T) {
	g := newTestGarage(t)
	ctx := context.Background()

	alice := &Person{ID: "alice", Name: "Alice"}
	bob := &Person{ID: "bob", Name: "Bob", Friend: alice}
	alice.Friend = bob
	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Owner: alice}))
	require.NoError(t, g.Park(ctx, &Task{ID: "t2", Title: "unrelated", Owner: &Person{ID: "carol"}}))

	require.NoError(t, g.DeleteGraph(ctx, "Task", "t1"))

	for _, key := range []core.Key{
		{Type: "Task", Identifier: "t1"},
		{Type: "Person", Identifier: "alice"},
		{Type: "Person", Identifier: "bob"},
	} {
		_, err := g.Store().Get(ctx, key)
		assert.ErrorIs(t, err, core.ErrNotFound, key.String())
	}

	t2, err := RetrieveAs[Task](ctx, g, "t2")
	require.NoError(t, err)
	assert.Equal(t, "carol", t2.Owner.ID)

	assert.ErrorIs(t, g.DeleteGraph(ctx, "Task", "t1"), core.ErrNotFound)
}

func TestAutosave_Restart(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled loses unsaved park", func(t *testing.T) {
		dir := t.TempDir()
		g := openTestGarage(t, dir, WithAutosave(false))
		require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "volatile"}))
		require.NoError(t, g.Close())

		g = openTestGarage(t, dir)
		defer g.Close()
		obj, err := g.Retrieve(ctx, "Task", "t1")
		require.NoError(t, err)
		assert.Nil(t, obj)
	})

	t.Run("enabled persists park", func(t *testing.T) {
		dir := t.TempDir()
		g := openTestGarage(t, dir)
		require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "durable", Owner: &Person{ID: "p1", Name: "Bob"}}))
		require.NoError(t, g.Close())

		g = openTestGarage(t, dir)
		defer g.Close()
		task, err := RetrieveAs[Task](ctx, g, "t1")
		require.NoError(t, err)
		assert.Equal(t, &Task{ID: "t1", Title: "durable", Owner: &Person{ID: "p1", Name: "Bob"}}, task)
	})

	t.Run("disabled then explicit save persists", func(t *testing.T) {
		dir := t.TempDir()
		g := openTestGarage(t, dir, WithAutosave(false))
		require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "batched"}))
		require.NoError(t, g.Park(ctx, &Task{ID: "t2", Title: "batched"}))
		g.Save(ctx)
		require.NoError(t, g.Close())

		g = openTestGarage(t, dir)
		defer g.Close()
		tasks, err := RetrieveAllAs[Task](ctx, g)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})
}

func TestSave_CommitFailureIsLogged(t *testing.T) {
	inner, err := badger.NewMemoryStore()
	require.NoError(t, err)
	store := &failingStore{RecordStore: inner, fail: true}

	logger, logs := newTestLogger()
	g, err := New(store, WithLogger(logger))
	require.NoError(t, err)
	defer g.Close()
	Register[Task](g)
	ctx := context.Background()

	require.NoError(t, g.Park(ctx, &Task{ID: "t1", Title: "pending"}))
	assert.True(t, g.HasPendingChanges())
	assert.Contains(t, logs.String(), "failed to save pending changes")
	assert.Contains(t, logs.String(), errCommitFailed.Error())

	// The mutation itself succeeded and is visible.
	task, err := RetrieveAs[Task](ctx, g, "t1")
	require.NoError(t, err)
	assert.Equal(t, "pending", task.Title)

	store.fail = false
	g.Save(ctx)
	assert.False(t, g.HasPendingChanges())
}

func TestEncryptedPayloads(t *testing.T) {
	enc, err := encryption.FromPassphrase([]byte("correct horse"), []byte("garage-test-salt"))
	require.NoError(t, err)
	g := newTestGarage(t, WithEncryptor(enc))
	ctx := context.Background()

	task := &Task{ID: "t1", Title: "top secret", Owner: &Person{ID: "p1", Name: "Bob"}}
	require.NoError(t, g.Park(ctx, task))

	for _, key := range []core.Key{{Type: "Task", Identifier: "t1"}, {Type: "Person", Identifier: "p1"}} {
		record, err := g.Store().Get(ctx, key)
		require.NoError(t, err)
		plain, err := enc.Decrypt(record.Payload)
		require.NoError(t, err)
		assert.NotEqual(t, string(plain), record.Payload)
		assert.Error(t, codec.Decode([]byte(record.Payload), &Task{}, nil), "stored payload is not a plain document")
	}

	got, err := g.Retrieve(ctx, "Task", "t1")
	require.NoError(t, err)
	assert.Equal(t, task, got)

	// Re-parking unchanged content is detected through the plaintext digest.
	g.SetAutosave(false)
	require.NoError(t, g.Park(ctx, task))
	assert.False(t, g.HasPendingChanges())
}

func TestOpen_LoadCallback(t *testing.T) {
	dir := t.TempDir()
	var reported []string
	cfg := NewConfig(WithStores(
		storage.Description{Name: "main", Format: storage.FormatBadger, Location: dir},
		storage.Description{Name: "scratch", Format: storage.FormatMemory},
	))

	g, err := Open(context.Background(), cfg, WithLoadCallback(func(desc storage.Description, err error) {
		assert.NoError(t, err)
		reported = append(reported, desc.Name)
	}))
	require.NoError(t, err)
	defer g.Close()

	assert.ElementsMatch(t, []string{"main", "scratch"}, reported)
}
