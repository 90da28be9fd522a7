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
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/storage"
	"github.com/poiesic/garage/storage/badger"
)

// Garage parks object graphs in a record store and retrieves them again.
//
// A Garage owns the store's working set and is not safe for concurrent use;
// callers must serialize access.
type Garage struct {
	store        storage.RecordStore
	registry     *codec.Registry
	encryptor    encryption.Encryptor
	autosave     bool
	loadCallback badger.LoadCallback
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Garage.
type Option func(*Garage) error

// WithAutosave enables or disables committing after every mutating operation.
// Default is enabled.
func WithAutosave(enabled bool) Option {
	return func(g *Garage) error {
		g.autosave = enabled
		return nil
	}
}

// WithEncryptor sets the hook payloads pass through before storage.
// Default is encryption.Passthrough.
func WithEncryptor(enc encryption.Encryptor) Option {
	return func(g *Garage) error {
		if enc == nil {
			enc = encryption.Passthrough
		}
		g.encryptor = enc
		return nil
	}
}

// WithRegistry sets the registry used to instantiate retrieved objects.
// Default is an empty registry; see Register.
func WithRegistry(registry *codec.Registry) Option {
	return func(g *Garage) error {
		if registry == nil {
			return ErrRegistryRequired
		}
		g.registry = registry
		return nil
	}
}

// WithLoadCallback sets the callback Open passes to the store bootstrap.
// It is invoked once per storage unit. Default logs each unit.
func WithLoadCallback(callback badger.LoadCallback) Option {
	return func(g *Garage) error {
		g.loadCallback = callback
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Garage) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

func newGarage(opts []Option) (*Garage, error) {
	g := &Garage{
		registry:  codec.NewRegistry(),
		encryptor: encryption.Passthrough,
		autosave:  true,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.loadCallback == nil {
		g.loadCallback = g.logUnit
	}
	return g, nil
}

// New creates a Garage over an already opened store. The Garage takes
// ownership of the store and closes it on Close.
func New(store storage.RecordStore, opts ...Option) (*Garage, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	g, err := newGarage(opts)
	if err != nil {
		return nil, err
	}
	g.store = store
	return g, nil
}

// Open bootstraps the storage units cfg describes and returns a Garage over
// them. It returns only after every unit has reported. A nil cfg means
// DefaultConfig().
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Garage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := cfg.Encryptor()
	if err != nil {
		return nil, err
	}

	// Explicit options override the configuration.
	g, err := newGarage(append([]Option{WithAutosave(cfg.Autosave), WithEncryptor(enc)}, opts...))
	if err != nil {
		return nil, err
	}

	store, err := badger.LoadStores(ctx, cfg.Stores, g.loadCallback, badger.WithLogger(g.logger))
	if err != nil {
		return nil, err
	}
	g.store = store
	return g, nil
}

func (g *Garage) logUnit(desc storage.Description, err error) {
	if err != nil {
		return
	}
	g.logger.Info("storage unit ready", "unit", desc.Name, "format", desc.Format, "location", desc.Location)
}

// Register makes *T retrievable from g and returns its type name.
func Register[T any, PT interface {
	*T
	codec.Object
}](g *Garage) string {
	return codec.Register[T, PT](g.registry)
}

// Registry returns the registry used to instantiate retrieved objects.
func (g *Garage) Registry() *codec.Registry {
	return g.registry
}

// Store returns the underlying record store.
func (g *Garage) Store() storage.RecordStore {
	return g.store
}

// Encryptor returns the hook payloads pass through.
func (g *Garage) Encryptor() encryption.Encryptor {
	return g.encryptor
}

// SetAutosave enables or disables committing after every mutating operation.
// Enabling it does not commit changes already pending.
func (g *Garage) SetAutosave(enabled bool) {
	g.autosave = enabled
}

// Autosave reports whether mutating operations commit immediately.
func (g *Garage) Autosave() bool {
	return g.autosave
}

// SetSyncStatus changes only the sync status of an existing record.
// Returns a *core.NotFoundError if the record doesn't exist.
func (g *Garage) SetSyncStatus(ctx context.Context, typeName, identifier string, status core.SyncStatus) error {
	if err := core.ValidateSyncStatus(status); err != nil {
		return err
	}
	record, err := g.store.Get(ctx, core.Key{Type: typeName, Identifier: identifier})
	if err != nil {
		return err
	}
	if record.SyncStatus == status {
		return nil
	}
	record.SyncStatus = status
	if err := g.store.Update(ctx, record); err != nil {
		return err
	}
	g.autosaveIfEnabled(ctx)
	return nil
}

// Fetch returns copies of the records whose sync status is status. An empty
// typeName matches every type.
func (g *Garage) Fetch(ctx context.Context, status core.SyncStatus, typeName string) ([]*core.Record, error) {
	return g.store.FetchBySyncStatus(ctx, status, typeName)
}

// Delete removes one record. Records it references are left in place.
// Returns a *core.NotFoundError if the record doesn't exist.
func (g *Garage) Delete(ctx context.Context, typeName, identifier string) error {
	if err := g.store.Delete(ctx, core.Key{Type: typeName, Identifier: identifier}); err != nil {
		return err
	}
	g.autosaveIfEnabled(ctx)
	return nil
}

// DeleteAll removes every record of the named types, or every record when no
// type is named.
func (g *Garage) DeleteAll(ctx context.Context, typeNames ...string) error {
	if err := g.store.DeleteAll(ctx, typeNames...); err != nil {
		return err
	}
	g.autosaveIfEnabled(ctx)
	return nil
}

// DeleteGraph removes a record and every record reachable through its
// children, whether or not something else still references them. Children
// that are already gone are skipped. Returns a *core.NotFoundError if the
// root record doesn't exist.
func (g *Garage) DeleteGraph(ctx context.Context, typeName, identifier string) error {
	root := core.Key{Type: typeName, Identifier: identifier}
	if _, err := g.store.Get(ctx, root); err != nil {
		return err
	}

	seen := map[core.Key]struct{}{root: {}}
	queue := []core.Key{root}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		record, err := g.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			return err
		}
		for _, child := range record.Children {
			if _, ok := seen[child]; !ok {
				seen[child] = struct{}{}
				queue = append(queue, child)
			}
		}
		if err := g.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	g.autosaveIfEnabled(ctx)
	return nil
}

// HasPendingChanges reports whether mutations are waiting for Save.
func (g *Garage) HasPendingChanges() bool {
	return g.store.HasPendingChanges()
}

// Save commits pending changes. Commit failures are logged, not returned;
// the changes stay pending for a later Save.
func (g *Garage) Save(ctx context.Context) {
	if !g.store.HasPendingChanges() {
		return
	}
	if err := g.store.Commit(ctx); err != nil {
		g.logger.ErrorContext(ctx, "failed to save pending changes", "err", err)
		return
	}
	g.logger.DebugContext(ctx, "saved pending changes")
}

func (g *Garage) autosaveIfEnabled(ctx context.Context) {
	if g.autosave {
		g.Save(ctx)
	}
}

// Close closes the underlying store. Pending changes are not saved.
func (g *Garage) Close() error {
	if g.store.HasPendingChanges() {
		g.logger.Warn("closing with unsaved changes")
	}
	if err := g.store.Close(); err != nil {
		g.logger.Error("error closing record store", "err", err)
		return err
	}
	return nil
}
