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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/storage/badger"
	"github.com/stretchr/testify/require"
)

type Person struct {
	ID     string
	Name   string
	Friend *Person
}

func (p *Person) TypeName() string   { return "Person" }
func (p *Person) Identifier() string { return p.ID }
func (p *Person) MapFields(m codec.Mapper) {
	m.String("id", &p.ID, codec.Required)
	m.String("name", &p.Name)
	codec.Ref(m, "friend", &p.Friend)
}

type Task struct {
	ID       string
	Title    string
	Tags     []string
	Owner    *Person
	Reviewer *Person
	Watchers []*Person
}

func (t *Task) TypeName() string   { return "Task" }
func (t *Task) Identifier() string { return t.ID }
func (t *Task) MapFields(m codec.Mapper) {
	m.String("id", &t.ID, codec.Required)
	m.String("title", &t.Title)
	m.Strings("tags", &t.Tags)
	codec.Ref(m, "owner", &t.Owner)
	codec.Ref(m, "reviewer", &t.Reviewer)
	codec.Refs(m, "watchers", &t.Watchers)
}

// failingStore fails Commit while fail is set.
type failingStore struct {
	*badger.RecordStore
	fail bool
}

var errCommitFailed = errors.New("disk on fire")

func (s *failingStore) Commit(ctx context.Context) error {
	if s.fail {
		return &core.StoreError{Op: "commit", Err: errCommitFailed}
	}
	return s.RecordStore.Commit(ctx)
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func newTestGarage(t *testing.T, opts ...Option) *Garage {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	g, err := New(store, opts...)
	require.NoError(t, err)
	Register[Task](g)
	Register[Person](g)
	t.Cleanup(func() { g.Close() })
	return g
}

func openTestGarage(t *testing.T, dir string, opts ...Option) *Garage {
	t.Helper()
	g, err := Open(context.Background(), NewConfig(WithBadgerDir(dir)), opts...)
	require.NoError(t, err)
	Register[Task](g)
	Register[Person](g)
	return g
}
