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


package codec

import (
	"fmt"
	"slices"
	"time"

	"github.com/poiesic/garage/core"
)

// Encoded is the result of encoding one object.
type Encoded struct {
	// Payload is the serialized document holding the object's own fields.
	Payload []byte
	// Nested holds each distinct identifiable object referenced from the
	// payload, in first-seen order. Their own fields are not in Payload.
	Nested []Object
	// Children holds the keys of Nested, in the same order.
	Children []core.Key
}

// Encode maps obj's fields into a payload document.
func Encode(obj Object) (*Encoded, error) {
	key := KeyOf(obj)
	if err := core.ValidateKey(key); err != nil {
		return nil, &core.MappingError{Type: key.Type, Err: fmt.Errorf("%w: %w", core.ErrNotIdentifiable, err)}
	}

	state := &encodeState{
		typeName: key.Type,
		seen:     make(map[core.Key]struct{}),
	}
	var fields []field
	obj.MapFields(&encoder{state: state, out: &fields})
	if state.err != nil {
		return nil, state.err
	}

	return &Encoded{
		Payload:  marshalDocument(fields),
		Nested:   state.nested,
		Children: state.children,
	}, nil
}

type encodeState struct {
	typeName string
	err      error
	nested   []Object
	children []core.Key
	seen     map[core.Key]struct{}
}

type encoder struct {
	state *encodeState
	path  string
	out   *[]field
}

var _ Mapper = (*encoder)(nil)

func (e *encoder) Decoding() bool {
	return false
}

func (e *encoder) put(name string, v value) {
	if e.state.err != nil {
		return
	}
	*e.out = append(*e.out, field{name: name, value: v})
}

func (e *encoder) String(name string, v *string, _ ...FieldOption) {
	e.put(name, value{kind: kindString, s: *v})
}

func (e *encoder) Int(name string, v *int, _ ...FieldOption) {
	e.put(name, value{kind: kindInt, i: int64(*v)})
}

func (e *encoder) Int64(name string, v *int64, _ ...FieldOption) {
	e.put(name, value{kind: kindInt, i: *v})
}

func (e *encoder) Float64(name string, v *float64, _ ...FieldOption) {
	e.put(name, value{kind: kindFloat, f: *v})
}

func (e *encoder) Bool(name string, v *bool, _ ...FieldOption) {
	e.put(name, value{kind: kindBool, b: *v})
}

func (e *encoder) Bytes(name string, v *[]byte, _ ...FieldOption) {
	if *v == nil {
		e.put(name, value{kind: kindNull})
		return
	}
	e.put(name, value{kind: kindBytes, bytes: *v})
}

func (e *encoder) Time(name string, v *time.Time, _ ...FieldOption) {
	e.put(name, value{kind: kindTime, t: *v})
}

func (e *encoder) Strings(name string, v *[]string, _ ...FieldOption) {
	if *v == nil {
		e.put(name, value{kind: kindNull})
		return
	}
	list := make([]value, len(*v))
	for i, s := range *v {
		list[i] = value{kind: kindString, s: s}
	}
	e.put(name, value{kind: kindList, list: list})
}

func (e *encoder) StringMap(name string, v *map[string]string, _ ...FieldOption) {
	if *v == nil {
		e.put(name, value{kind: kindNull})
		return
	}
	// Sorted so identical maps always produce identical payloads.
	keys := make([]string, 0, len(*v))
	for k := range *v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fields := make([]field, len(keys))
	for i, k := range keys {
		fields[i] = field{name: k, value: value{kind: kindString, s: (*v)[k]}}
	}
	e.put(name, value{kind: kindMap, fields: fields})
}

func (e *encoder) Struct(name string, v Mappable, _ ...FieldOption) {
	if e.state.err != nil {
		return
	}
	var fields []field
	v.MapFields(&encoder{state: e.state, path: joinPath(e.path, name), out: &fields})
	e.put(name, value{kind: kindMap, fields: fields})
}

func (e *encoder) Object(name string, v *Object, _ ...FieldOption) {
	if e.state.err != nil {
		return
	}
	if *v == nil {
		e.put(name, value{kind: kindNull})
		return
	}
	key := KeyOf(*v)
	if err := core.ValidateKey(key); err != nil {
		e.Fail(name, fmt.Errorf("%w: %w", core.ErrNotIdentifiable, err))
		return
	}
	if _, ok := e.state.seen[key]; !ok {
		e.state.seen[key] = struct{}{}
		e.state.nested = append(e.state.nested, *v)
		e.state.children = append(e.state.children, key)
	}
	e.put(name, value{kind: kindRef, ref: key})
}

func (e *encoder) Seq(name string, n int, _ func(n int), elem func(i int, m Mapper), _ ...FieldOption) {
	if e.state.err != nil {
		return
	}
	list := make([]value, 0, n)
	for i := 0; i < n; i++ {
		v, ok := e.element(indexPath(e.path, name, i), func(m Mapper) { elem(i, m) })
		if !ok {
			return
		}
		list = append(list, v)
	}
	e.put(name, value{kind: kindList, list: list})
}

func (e *encoder) Maybe(name string, present *bool, fn func(m Mapper), _ ...FieldOption) {
	if e.state.err != nil {
		return
	}
	if !*present {
		e.put(name, value{kind: kindNull})
		return
	}
	v, ok := e.element(joinPath(e.path, name), fn)
	if !ok {
		return
	}
	e.put(name, v)
}

// element runs fn against a single-slot encoder and returns the one value it mapped.
func (e *encoder) element(path string, fn func(m Mapper)) (value, bool) {
	var slot []field
	fn(&encoder{state: e.state, path: path, out: &slot})
	if e.state.err != nil {
		return value{}, false
	}
	if len(slot) != 1 {
		e.state.err = &core.MappingError{
			Type: e.state.typeName,
			Path: path,
			Err:  fmt.Errorf("%w: mapped %d", ErrElementShape, len(slot)),
		}
		return value{}, false
	}
	return slot[0].value, true
}

func (e *encoder) Fail(name string, err error) {
	if e.state.err != nil {
		return
	}
	e.state.err = &core.MappingError{Type: e.state.typeName, Path: joinPath(e.path, name), Err: err}
}

func (e *encoder) Err() error {
	return e.state.err
}
