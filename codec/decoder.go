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
	"time"

	"github.com/poiesic/garage/core"
)

// ResolveFunc returns the object stored under key. It is called for every
// reference met while decoding and may return an instance it already built.
type ResolveFunc func(key core.Key) (Object, error)

// Decode fills target from a payload produced by Encode. References are
// resolved through resolve; errors it returns are passed through unchanged.
func Decode(payload []byte, target Object, resolve ResolveFunc) error {
	fields, err := unmarshalDocument(payload)
	if err != nil {
		return &core.MappingError{Type: target.TypeName(), Err: err}
	}

	state := &decodeState{typeName: target.TypeName(), resolve: resolve}
	target.MapFields(&decoder{state: state, fields: fields})
	return state.err
}

type decodeState struct {
	typeName string
	err      error
	resolve  ResolveFunc
}

type decoder struct {
	state  *decodeState
	path   string
	fields []field
	elem   *value // set on single-slot decoders for sequence elements and optionals
}

var _ Mapper = (*decoder)(nil)

func (d *decoder) Decoding() bool {
	return true
}

func (d *decoder) find(name string) *value {
	if d.state.err != nil {
		return nil
	}
	if d.elem != nil {
		return d.elem
	}
	for i := range d.fields {
		if d.fields[i].name == name {
			return &d.fields[i].value
		}
	}
	return nil
}

// lookup returns the stored value for name, or nil when the field is absent
// or null. Required fields that are absent or null fail.
func (d *decoder) lookup(name string, opts []FieldOption) *value {
	v := d.find(name)
	if v == nil || v.kind == kindNull {
		if d.state.err == nil && hasOption(opts, Required) {
			d.Fail(name, core.ErrMissingField)
		}
		return nil
	}
	return v
}

// expect is lookup plus a kind check.
func (d *decoder) expect(name string, want kind, opts []FieldOption) *value {
	v := d.lookup(name, opts)
	if v == nil {
		return nil
	}
	if v.kind != want {
		d.mismatch(name, want, v.kind)
		return nil
	}
	return v
}

func (d *decoder) mismatch(name string, want, got kind) {
	d.Fail(name, fmt.Errorf("%w: want %s, found %s", core.ErrTypeMismatch, want, got))
}

func (d *decoder) String(name string, v *string, opts ...FieldOption) {
	if sv := d.expect(name, kindString, opts); sv != nil {
		*v = sv.s
	}
}

func (d *decoder) Int(name string, v *int, opts ...FieldOption) {
	if iv := d.expect(name, kindInt, opts); iv != nil {
		*v = int(iv.i)
	}
}

func (d *decoder) Int64(name string, v *int64, opts ...FieldOption) {
	if iv := d.expect(name, kindInt, opts); iv != nil {
		*v = iv.i
	}
}

func (d *decoder) Float64(name string, v *float64, opts ...FieldOption) {
	fv := d.lookup(name, opts)
	if fv == nil {
		return
	}
	switch fv.kind {
	case kindFloat:
		*v = fv.f
	case kindInt:
		*v = float64(fv.i)
	default:
		d.mismatch(name, kindFloat, fv.kind)
	}
}

func (d *decoder) Bool(name string, v *bool, opts ...FieldOption) {
	if bv := d.expect(name, kindBool, opts); bv != nil {
		*v = bv.b
	}
}

func (d *decoder) Bytes(name string, v *[]byte, opts ...FieldOption) {
	if d.null(name, opts) {
		*v = nil
		return
	}
	if bv := d.expect(name, kindBytes, opts); bv != nil {
		*v = bv.bytes
	}
}

func (d *decoder) Time(name string, v *time.Time, opts ...FieldOption) {
	if tv := d.expect(name, kindTime, opts); tv != nil {
		*v = tv.t
	}
}

func (d *decoder) Strings(name string, v *[]string, opts ...FieldOption) {
	if d.null(name, opts) {
		*v = nil
		return
	}
	lv := d.expect(name, kindList, opts)
	if lv == nil {
		return
	}
	out := make([]string, len(lv.list))
	for i := range lv.list {
		if lv.list[i].kind != kindString {
			d.failAt(indexPath(d.path, name, i), fmt.Errorf("%w: want %s, found %s",
				core.ErrTypeMismatch, kindString, lv.list[i].kind))
			return
		}
		out[i] = lv.list[i].s
	}
	*v = out
}

func (d *decoder) StringMap(name string, v *map[string]string, opts ...FieldOption) {
	if d.null(name, opts) {
		*v = nil
		return
	}
	mv := d.expect(name, kindMap, opts)
	if mv == nil {
		return
	}
	out := make(map[string]string, len(mv.fields))
	for _, f := range mv.fields {
		if f.value.kind != kindString {
			d.failAt(joinPath(joinPath(d.path, name), f.name), fmt.Errorf("%w: want %s, found %s",
				core.ErrTypeMismatch, kindString, f.value.kind))
			return
		}
		out[f.name] = f.value.s
	}
	*v = out
}

func (d *decoder) Struct(name string, v Mappable, opts ...FieldOption) {
	sv := d.expect(name, kindMap, opts)
	if sv == nil {
		return
	}
	v.MapFields(&decoder{state: d.state, path: joinPath(d.path, name), fields: sv.fields})
}

func (d *decoder) Object(name string, v *Object, opts ...FieldOption) {
	if d.null(name, opts) {
		*v = nil
		return
	}
	rv := d.expect(name, kindRef, opts)
	if rv == nil {
		return
	}
	if d.state.resolve == nil {
		d.Fail(name, ErrNoResolver)
		return
	}
	obj, err := d.state.resolve(rv.ref)
	if err != nil {
		d.state.err = err
		return
	}
	*v = obj
}

func (d *decoder) Seq(name string, _ int, alloc func(n int), elem func(i int, m Mapper), opts ...FieldOption) {
	lv := d.expect(name, kindList, opts)
	if lv == nil {
		return
	}
	alloc(len(lv.list))
	for i := range lv.list {
		if d.state.err != nil {
			return
		}
		elem(i, &decoder{state: d.state, path: indexPath(d.path, name, i), elem: &lv.list[i]})
	}
}

func (d *decoder) Maybe(name string, present *bool, fn func(m Mapper), opts ...FieldOption) {
	if d.null(name, opts) {
		*present = false
		return
	}
	v := d.lookup(name, opts)
	if v == nil {
		return
	}
	*present = true
	fn(&decoder{state: d.state, path: joinPath(d.path, name), elem: v})
}

// null reports whether name is stored as an explicit null that the caller
// should apply. Required fields never accept null.
func (d *decoder) null(name string, opts []FieldOption) bool {
	v := d.find(name)
	return v != nil && v.kind == kindNull && !hasOption(opts, Required)
}

func (d *decoder) Fail(name string, err error) {
	d.failAt(joinPath(d.path, name), err)
}

func (d *decoder) failAt(path string, err error) {
	if d.state.err != nil {
		return
	}
	d.state.err = &core.MappingError{Type: d.state.typeName, Path: path, Err: err}
}

func (d *decoder) Err() error {
	return d.state.err
}
