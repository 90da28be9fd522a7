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

	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
)

// session decodes records for one retrieval call. Every object is cached
// before its fields are decoded, so repeated and cyclic references resolve to
// the same instance.
type session struct {
	g       *Garage
	ctx     context.Context
	objects map[core.Key]codec.Object
}

func (g *Garage) newSession(ctx context.Context) *session {
	return &session{g: g, ctx: ctx, objects: make(map[core.Key]codec.Object)}
}

// load returns the object stored under key, or nil, nil if no record exists.
func (s *session) load(key core.Key) (codec.Object, error) {
	if obj, ok := s.objects[key]; ok {
		return obj, nil
	}
	record, err := s.g.store.Get(s.ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.decode(record)
}

func (s *session) decode(record *core.Record) (codec.Object, error) {
	key := record.Key()
	obj, err := s.g.registry.New(record.Type)
	if err != nil {
		return nil, &core.MappingError{Type: record.Type, Err: err}
	}
	payload, err := s.g.encryptor.Decrypt(record.Payload)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", key, err)
	}

	s.objects[key] = obj
	if err := codec.Decode(payload, obj, s.resolver(key)); err != nil {
		delete(s.objects, key)
		return nil, err
	}
	if obj.Identifier() != key.Identifier {
		delete(s.objects, key)
		return nil, &core.MappingError{
			Type: record.Type,
			Err:  fmt.Errorf("%w: record %s decoded as %q", core.ErrIdentifierMismatch, key, obj.Identifier()),
		}
	}
	return obj, nil
}

// resolver resolves references found in the payload of from.
func (s *session) resolver(from core.Key) codec.ResolveFunc {
	return func(to core.Key) (codec.Object, error) {
		obj, err := s.load(to)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, &core.DanglingReferenceError{From: from, To: to}
		}
		return obj, nil
	}
}

// Retrieve reconstructs the object stored under (typeName, identifier),
// including every object it references. Returns nil, nil if no record
// exists. The type must be registered.
func (g *Garage) Retrieve(ctx context.Context, typeName, identifier string) (codec.Object, error) {
	key := core.Key{Type: typeName, Identifier: identifier}
	if err := core.ValidateKey(key); err != nil {
		return nil, err
	}
	return g.newSession(ctx).load(key)
}

// RetrieveAll reconstructs every object of typeName. Records that fail to
// decode are logged and skipped.
func (g *Garage) RetrieveAll(ctx context.Context, typeName string) ([]codec.Object, error) {
	records, err := g.store.FetchByType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	objs := make([]codec.Object, 0, len(records))
	for _, record := range records {
		obj, err := g.newSession(ctx).decode(record)
		if err != nil {
			g.logger.WarnContext(ctx, "skipping record that failed to decode",
				"key", record.Key().String(), "err", err)
			continue
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// RetrieveAs is Retrieve for a statically known type.
func RetrieveAs[T any, PT interface {
	*T
	codec.Object
}](ctx context.Context, g *Garage, identifier string) (PT, error) {
	typeName := PT(new(T)).TypeName()
	obj, err := g.Retrieve(ctx, typeName, identifier)
	if err != nil || obj == nil {
		return nil, err
	}
	return asType[T, PT](typeName, obj)
}

// RetrieveAllAs is RetrieveAll for a statically known type.
func RetrieveAllAs[T any, PT interface {
	*T
	codec.Object
}](ctx context.Context, g *Garage) ([]PT, error) {
	typeName := PT(new(T)).TypeName()
	objs, err := g.RetrieveAll(ctx, typeName)
	if err != nil {
		return nil, err
	}
	out := make([]PT, 0, len(objs))
	for _, obj := range objs {
		typed, err := asType[T, PT](typeName, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

func asType[T any, PT interface {
	*T
	codec.Object
}](typeName string, obj codec.Object) (PT, error) {
	typed, ok := obj.(PT)
	if !ok {
		return nil, &core.MappingError{
			Type: typeName,
			Err:  fmt.Errorf("%w: registered factory produced %T", core.ErrTypeMismatch, obj),
		}
	}
	return typed, nil
}
