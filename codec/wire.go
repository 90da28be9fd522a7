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
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/garage/core"
)

// maxDepth bounds document nesting on decode.
const maxDepth = 256

// marshalDocument serializes the top-level fields of a payload.
func marshalDocument(fields []field) []byte {
	root := value{kind: kindMap, fields: fields}
	buf := make([]byte, sizeValue(&root))
	marshalValue(&root, buf)
	return buf
}

// unmarshalDocument deserializes a payload produced by marshalDocument.
func unmarshalDocument(data []byte) ([]field, error) {
	root, n, err := unmarshalValue(data, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, len(data)-n)
	}
	if root.kind != kindMap {
		return nil, fmt.Errorf("%w: root is %s", ErrMalformedPayload, root.kind)
	}
	return root.fields, nil
}

func sizeValue(v *value) int {
	size := 1 // kind tag
	switch v.kind {
	case kindBool:
		size += ord.Bool.Size(v.b)
	case kindInt:
		size += varint.Int64.Size(v.i)
	case kindFloat:
		size += varint.Uint64.Size(math.Float64bits(v.f))
	case kindString:
		size += ord.String.Size(v.s)
	case kindBytes:
		size += varint.Int64.Size(int64(len(v.bytes))) + len(v.bytes)
	case kindTime:
		name, offset := v.t.Zone()
		size += varint.Int64.Size(v.t.Unix()) + varint.Int64.Size(int64(v.t.Nanosecond()))
		size += ord.String.Size(name) + varint.Int64.Size(int64(offset))
	case kindList:
		size += varint.Int64.Size(int64(len(v.list)))
		for i := range v.list {
			size += sizeValue(&v.list[i])
		}
	case kindMap:
		size += varint.Int64.Size(int64(len(v.fields)))
		for i := range v.fields {
			size += ord.String.Size(v.fields[i].name)
			size += sizeValue(&v.fields[i].value)
		}
	case kindRef:
		size += core.KeyMUS.Size(v.ref)
	}
	return size
}

func marshalValue(v *value, bs []byte) (n int) {
	bs[0] = byte(v.kind)
	n = 1
	switch v.kind {
	case kindBool:
		n += ord.Bool.Marshal(v.b, bs[n:])
	case kindInt:
		n += varint.Int64.Marshal(v.i, bs[n:])
	case kindFloat:
		n += varint.Uint64.Marshal(math.Float64bits(v.f), bs[n:])
	case kindString:
		n += ord.String.Marshal(v.s, bs[n:])
	case kindBytes:
		n += varint.Int64.Marshal(int64(len(v.bytes)), bs[n:])
		n += copy(bs[n:], v.bytes)
	case kindTime:
		name, offset := v.t.Zone()
		n += varint.Int64.Marshal(v.t.Unix(), bs[n:])
		n += varint.Int64.Marshal(int64(v.t.Nanosecond()), bs[n:])
		n += ord.String.Marshal(name, bs[n:])
		n += varint.Int64.Marshal(int64(offset), bs[n:])
	case kindList:
		n += varint.Int64.Marshal(int64(len(v.list)), bs[n:])
		for i := range v.list {
			n += marshalValue(&v.list[i], bs[n:])
		}
	case kindMap:
		n += varint.Int64.Marshal(int64(len(v.fields)), bs[n:])
		for i := range v.fields {
			n += ord.String.Marshal(v.fields[i].name, bs[n:])
			n += marshalValue(&v.fields[i].value, bs[n:])
		}
	case kindRef:
		n += core.KeyMUS.Marshal(v.ref, bs[n:])
	}
	return
}

func unmarshalValue(bs []byte, depth int) (v value, n int, err error) {
	if depth > maxDepth {
		err = ErrDocumentTooDeep
		return
	}
	if len(bs) == 0 {
		err = fmt.Errorf("truncated value")
		return
	}
	v.kind = kind(bs[0])
	n = 1
	var n1 int
	switch v.kind {
	case kindNull:
	case kindBool:
		v.b, n1, err = ord.Bool.Unmarshal(bs[n:])
	case kindInt:
		v.i, n1, err = varint.Int64.Unmarshal(bs[n:])
	case kindFloat:
		var bits uint64
		bits, n1, err = varint.Uint64.Unmarshal(bs[n:])
		v.f = math.Float64frombits(bits)
	case kindString:
		v.s, n1, err = ord.String.Unmarshal(bs[n:])
	case kindBytes:
		var length int64
		if length, n1, err = unmarshalCount(bs[n:], 1); err != nil {
			return
		}
		n += n1
		v.bytes = make([]byte, length)
		n1 = copy(v.bytes, bs[n:])
	case kindTime:
		var sec, nsec, offset int64
		var name string
		if sec, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		if nsec, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		if name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
		offset, n1, err = varint.Int64.Unmarshal(bs[n:])
		v.t = inZone(time.Unix(sec, nsec), name, int(offset))
	case kindList:
		var count int64
		if count, n1, err = unmarshalCount(bs[n:], 1); err != nil {
			return
		}
		n += n1
		n1 = 0
		v.list = make([]value, count)
		for i := range v.list {
			var m int
			if v.list[i], m, err = unmarshalValue(bs[n:], depth+1); err != nil {
				return
			}
			n += m
		}
	case kindMap:
		var count int64
		// A field needs at least a name length byte and a kind tag.
		if count, n1, err = unmarshalCount(bs[n:], 2); err != nil {
			return
		}
		n += n1
		n1 = 0
		v.fields = make([]field, count)
		for i := range v.fields {
			var m int
			if v.fields[i].name, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			if v.fields[i].value, m, err = unmarshalValue(bs[n:], depth+1); err != nil {
				return
			}
			n += m
		}
	case kindRef:
		v.ref, n1, err = core.KeyMUS.Unmarshal(bs[n:])
	default:
		err = fmt.Errorf("unknown value kind %d", bs[0])
	}
	n += n1
	return
}

// inZone restores the zone a time was encoded with. UTC comes back as
// time.UTC; any other location comes back as a fixed zone with the same
// abbreviation and offset.
func inZone(t time.Time, name string, offset int) time.Time {
	if name == "UTC" && offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone(name, offset))
}

// unmarshalCount reads a length prefix and checks it against the remaining
// bytes, given the minimum encoded size of one element.
func unmarshalCount(bs []byte, minElem int) (count int64, n int, err error) {
	count, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	if count < 0 || count > int64(len(bs)-n)/int64(minElem) {
		err = fmt.Errorf("length %d exceeds remaining %d bytes", count, len(bs)-n)
	}
	return
}
