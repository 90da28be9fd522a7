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

	"github.com/poiesic/garage/core"
)

// Ref maps a field holding a typed identifiable object, such as a *Person.
// A nil pointer is stored as null.
func Ref[PT interface {
	comparable
	Object
}](m Mapper, name string, v *PT, opts ...FieldOption) {
	var zero PT
	var obj Object
	if *v != zero {
		obj = *v
	}
	m.Object(name, &obj, opts...)
	if !m.Decoding() || m.Err() != nil {
		return
	}
	if obj == nil {
		*v = zero
		return
	}
	typed, ok := obj.(PT)
	if !ok {
		m.Fail(name, fmt.Errorf("%w: %s cannot be stored in %T", core.ErrTypeMismatch, obj.TypeName(), zero))
		return
	}
	*v = typed
}

// Refs maps a slice of typed identifiable objects.
func Refs[PT interface {
	comparable
	Object
}](m Mapper, name string, v *[]PT, opts ...FieldOption) {
	Slice(m, name, v, func(m Mapper, e *PT) {
		Ref(m, "", e)
	}, opts...)
}

// Slice maps a slice whose elements are mapped by elem. elem must map exactly
// one value on the mapper it receives. A nil slice is stored as null.
func Slice[T any](m Mapper, name string, v *[]T, elem func(m Mapper, e *T), opts ...FieldOption) {
	present := *v != nil
	m.Maybe(name, &present, func(m Mapper) {
		m.Seq("", len(*v), func(n int) {
			*v = make([]T, n)
		}, func(i int, m Mapper) {
			elem(m, &(*v)[i])
		})
	}, opts...)
	if m.Decoding() && !present {
		*v = nil
	}
}

// Structs maps a slice of plain nested values.
func Structs[T any, PT interface {
	*T
	Mappable
}](m Mapper, name string, v *[]T, opts ...FieldOption) {
	Slice(m, name, v, func(m Mapper, e *T) {
		m.Struct("", PT(e))
	}, opts...)
}

// Optional maps a pointer field whose pointee is mapped by elem. A nil pointer
// is stored as null; decoding allocates a fresh pointee.
func Optional[T any](m Mapper, name string, v **T, elem func(m Mapper, e *T), opts ...FieldOption) {
	present := *v != nil
	m.Maybe(name, &present, func(m Mapper) {
		if m.Decoding() {
			*v = new(T)
		}
		elem(m, *v)
	}, opts...)
	if m.Decoding() && !present {
		*v = nil
	}
}
