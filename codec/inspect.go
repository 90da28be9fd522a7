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

// RefKey is the map key under which Inspect reports references.
const RefKey = "$ref"

// Inspect decodes a payload into generic Go values without a target type:
// map[string]any for structs and string maps, []any for lists, and
// {"$ref": "Type/Identifier"} for references.
func Inspect(payload []byte) (map[string]any, error) {
	fields, err := unmarshalDocument(payload)
	if err != nil {
		return nil, err
	}
	return nativeFields(fields), nil
}

func nativeFields(fields []field) map[string]any {
	out := make(map[string]any, len(fields))
	for i := range fields {
		out[fields[i].name] = native(&fields[i].value)
	}
	return out
}

func native(v *value) any {
	switch v.kind {
	case kindBool:
		return v.b
	case kindInt:
		return v.i
	case kindFloat:
		return v.f
	case kindString:
		return v.s
	case kindBytes:
		return v.bytes
	case kindTime:
		return v.t
	case kindList:
		out := make([]any, len(v.list))
		for i := range v.list {
			out[i] = native(&v.list[i])
		}
		return out
	case kindMap:
		return nativeFields(v.fields)
	case kindRef:
		return map[string]any{RefKey: v.ref.String()}
	default:
		return nil
	}
}
