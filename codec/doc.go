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


// Package codec encodes identifiable objects into payloads and rebuilds them.
//
// Types take part by implementing [Mappable] (plain structural values) or
// [Object] (values with their own identity). A single MapFields method drives
// both directions: the [Mapper] passed to it either reads the fields into a
// document or fills them from one.
//
//	type Task struct {
//	    ID    string
//	    Title string
//	    Owner *Person
//	}
//
//	func (t *Task) TypeName() string   { return "Task" }
//	func (t *Task) Identifier() string { return t.ID }
//	func (t *Task) MapFields(m codec.Mapper) {
//	    m.String("id", &t.ID, codec.Required)
//	    m.String("title", &t.Title)
//	    codec.Ref(m, "owner", &t.Owner)
//	}
//
// # References
//
// Object slots are never embedded. The encoder writes a (type, identifier)
// reference in their place and returns the referenced objects so the caller
// can store them as records of their own. The decoder hands each reference to
// a [ResolveFunc], which may return an instance it already built; that is how
// shared and cyclic references are rebuilt without infinite recursion.
//
// # Payload format
//
// Payloads are a self-describing document tree (named fields, lists, scalars
// and references) serialized with mus-go. Decoding looks fields up by name:
// stored fields the type no longer maps are ignored, and mapped fields missing
// from the payload keep their default unless marked [Required].
package codec
