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
	"fmt"
	"slices"

	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
)

// plannedRecord is one encoded object waiting to be written.
type plannedRecord struct {
	key      core.Key
	payload  string
	digest   uint64
	children []core.Key
}

// Park stores obj and every identifiable object reachable from it, creating
// records for new keys and updating existing ones in place.
func (g *Garage) Park(ctx context.Context, obj codec.Object) error {
	return g.ParkAll(ctx, obj)
}

// ParkAll parks several objects with a single autosave. An object reachable
// more than once is encoded from its first occurrence.
func (g *Garage) ParkAll(ctx context.Context, objs ...codec.Object) error {
	plan, err := g.plan(objs)
	if err != nil {
		return err
	}
	for _, p := range plan {
		if err := g.upsert(ctx, p); err != nil {
			return err
		}
	}
	g.autosaveIfEnabled(ctx)
	return nil
}

// plan encodes the whole graph breadth-first before anything is written, so
// that a mapping error leaves the store untouched.
func (g *Garage) plan(objs []codec.Object) ([]plannedRecord, error) {
	seen := make(map[core.Key]struct{})
	queue := slices.Clone(objs)
	var plan []plannedRecord

	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if obj == nil {
			return nil, &core.MappingError{Err: fmt.Errorf("%w: nil object", core.ErrNotIdentifiable)}
		}

		key := codec.KeyOf(obj)
		if _, ok := seen[key]; ok {
			continue
		}
		enc, err := codec.Encode(obj)
		if err != nil {
			return nil, err
		}
		seen[key] = struct{}{}

		payload, err := g.encryptor.Encrypt(enc.Payload)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", key, err)
		}
		plan = append(plan, plannedRecord{
			key:      key,
			payload:  payload,
			digest:   core.Digest(enc.Payload),
			children: enc.Children,
		})
		queue = append(queue, enc.Nested...)
	}
	return plan, nil
}

// upsert inserts a new record or updates the existing one, keeping its
// creation date and sync status. Unchanged records are not rewritten.
func (g *Garage) upsert(ctx context.Context, p plannedRecord) error {
	now := g.now().UTC()
	existing, err := g.store.Get(ctx, p.key)
	if errors.Is(err, core.ErrNotFound) {
		return g.store.Insert(ctx, &core.Record{
			Type:             p.key.Type,
			Identifier:       p.key.Identifier,
			Payload:          p.payload,
			CreationDate:     now,
			ModificationDate: now,
			SyncStatus:       core.SyncStatusNeedsUpload,
			Children:         p.children,
			Digest:           p.digest,
		})
	}
	if err != nil {
		return err
	}

	if existing.Digest == p.digest && slices.Equal(existing.Children, p.children) {
		return nil
	}
	existing.Payload = p.payload
	existing.Children = p.children
	existing.Digest = p.digest
	existing.ModificationDate = now
	return g.store.Update(ctx, existing)
}
