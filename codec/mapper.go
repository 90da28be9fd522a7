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

// FieldOption modifies how a single field is mapped.
type FieldOption uint8

const (
	// Required makes decoding fail when the field is absent or null.
	Required FieldOption = 1 << iota
)

func hasOption(opts []FieldOption, opt FieldOption) bool {
	return slices.Contains(opts, opt)
}

// Mappable is implemented by values that can describe their fields to a Mapper.
// MapFields must be callable on a pointer to a zero value.
type Mappable interface {
	MapFields(m Mapper)
}

// Object is an identifiable value: it is stored as a record of its own and
// referenced from any payload that contains it.
//
// TypeName must return the same constant for every value of a type, including
// zero values, and stay stable across versions of the type.
type Object interface {
	Mappable
	TypeName() string
	Identifier() string
}

// KeyOf returns the record key of obj.
func KeyOf(obj Object) core.Key {
	return core.Key{Type: obj.TypeName(), Identifier: obj.Identifier()}
}

// Mapper visits the fields of a value.
//
// While encoding, every method reads the pointed-to value. While decoding,
// every method writes it; fields absent from the payload are left untouched.
// Errors are sticky: after the first failure all calls are no-ops and Err
// reports the failure.
type Mapper interface {
	// Decoding reports whether the mapper fills fields from a payload.
	Decoding() bool

	String(name string, v *string, opts ...FieldOption)
	Int(name string, v *int, opts ...FieldOption)
	Int64(name string, v *int64, opts ...FieldOption)
	Float64(name string, v *float64, opts ...FieldOption)
	Bool(name string, v *bool, opts ...FieldOption)
	Bytes(name string, v *[]byte, opts ...FieldOption)
	Time(name string, v *time.Time, opts ...FieldOption)
	Strings(name string, v *[]string, opts ...FieldOption)
	StringMap(name string, v *map[string]string, opts ...FieldOption)

	// Struct maps a plain nested value inline.
	Struct(name string, v Mappable, opts ...FieldOption)

	// Object maps a slot holding an identifiable object. A nil object is
	// stored as null. Prefer the typed Ref helper.
	Object(name string, v *Object, opts ...FieldOption)

	// Seq maps a sequence of n elements. When decoding, n is ignored and alloc
	// receives the stored length before any element is visited. elem must map
	// exactly one value, under any name, on the mapper it is given.
	Seq(name string, n int, alloc func(n int), elem func(i int, m Mapper), opts ...FieldOption)

	// Maybe maps an optional value. When encoding, fn runs only if *present.
	// When decoding, a null value sets *present to false and any other value
	// sets it to true before fn runs. fn must map exactly one value.
	Maybe(name string, present *bool, fn func(m Mapper), opts ...FieldOption)

	// Fail records a mapping failure for the named field.
	Fail(name string, err error)

	// Err returns the first failure recorded, if any.
	Err() error
}

func joinPath(base, name string) string {
	switch {
	case name == "":
		return base
	case base == "":
		return name
	default:
		return base + "." + name
	}
}

func indexPath(base, name string, i int) string {
	return fmt.Sprintf("%s[%d]", joinPath(base, name), i)
}
