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


// Package storage provides the storage abstraction layer for garage.
//
// The RecordStore interface decouples the coordinator from the storage engine.
// Records are generic: a type name, an identifier, an opaque payload string,
// timestamps, a sync status and the keys of the records the payload refers to.
//
// # Working set
//
// A RecordStore stages every mutation in memory. Nothing reaches durable
// storage until Commit succeeds, and a failed Commit leaves the staged
// mutations in place so that a later Commit can retry them. Close discards
// whatever is still staged.
//
// # Storage units
//
// A store may span several units, each described by a Description:
//
//	descs := []storage.Description{
//	    {Name: "main", Format: storage.FormatBadger, Location: "/var/lib/garage"},
//	}
//	store, err := badger.LoadStores(ctx, descs, nil)
//
// Reads consult every unit; new records go to the first one.
//
// # Thread Safety
//
// RecordStore implementations are not safe for concurrent use. The caller
// owns a single mutation context.
package storage
