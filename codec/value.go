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
	"time"

	"github.com/poiesic/garage/core"
)

type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindBytes
	kindTime
	kindList
	kindMap
	kindRef
)

var kindNames = [...]string{
	kindNull:   "null",
	kindBool:   "bool",
	kindInt:    "int",
	kindFloat:  "float",
	kindString: "string",
	kindBytes:  "bytes",
	kindTime:   "time",
	kindList:   "list",
	kindMap:    "map",
	kindRef:    "reference",
}

func (k kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// value is one node of a payload document.
type value struct {
	kind   kind
	b      bool
	i      int64
	f      float64
	s      string
	bytes  []byte
	t      time.Time
	list   []value
	fields []field
	ref    core.Key
}

type field struct {
	name  string
	value value
}
