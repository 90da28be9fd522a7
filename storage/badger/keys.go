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


package badger

import (
	"bytes"
	"fmt"

	"github.com/poiesic/garage/core"
)

// Key prefixes for different data types
const (
	recordPrefix = "garrec\x00"
	syncPrefix   = "garsyn\x00"
	keySep       = '\x00'
)

// makeRecordKey generates the primary key for a record.
// Format: prefix type NUL identifier
func makeRecordKey(key core.Key) []byte {
	buf := make([]byte, 0, len(recordPrefix)+len(key.Type)+1+len(key.Identifier))
	buf = append(buf, recordPrefix...)
	buf = append(buf, key.Type...)
	buf = append(buf, keySep)
	return append(buf, key.Identifier...)
}

// makeRecordTypePrefix generates a partial key matching every record of a type.
// An empty type name matches every record.
func makeRecordTypePrefix(typeName string) []byte {
	if typeName == "" {
		return []byte(recordPrefix)
	}
	buf := make([]byte, 0, len(recordPrefix)+len(typeName)+1)
	buf = append(buf, recordPrefix...)
	buf = append(buf, typeName...)
	return append(buf, keySep)
}

// makeSyncKey generates a sync status index key.
// Format: prefix status-byte type NUL identifier
func makeSyncKey(status core.SyncStatus, key core.Key) []byte {
	buf := make([]byte, 0, len(syncPrefix)+1+len(key.Type)+1+len(key.Identifier))
	buf = append(buf, syncPrefix...)
	buf = append(buf, byte(status))
	buf = append(buf, key.Type...)
	buf = append(buf, keySep)
	return append(buf, key.Identifier...)
}

// makeSyncPrefix generates a partial key for sync status queries.
// An empty type name matches every type.
func makeSyncPrefix(status core.SyncStatus, typeName string) []byte {
	buf := make([]byte, 0, len(syncPrefix)+1+len(typeName)+1)
	buf = append(buf, syncPrefix...)
	buf = append(buf, byte(status))
	if typeName == "" {
		return buf
	}
	buf = append(buf, typeName...)
	return append(buf, keySep)
}

// parseRecordKey recovers the record key from a primary key.
func parseRecordKey(b []byte) (core.Key, error) {
	rest, ok := bytes.CutPrefix(b, []byte(recordPrefix))
	if !ok {
		return core.Key{}, fmt.Errorf("%w: %q", core.ErrMalformedKey, b)
	}
	return splitKey(rest)
}

// parseSyncKey recovers the status and record key from a sync index key.
func parseSyncKey(b []byte) (core.SyncStatus, core.Key, error) {
	rest, ok := bytes.CutPrefix(b, []byte(syncPrefix))
	if !ok || len(rest) == 0 {
		return 0, core.Key{}, fmt.Errorf("%w: %q", core.ErrMalformedKey, b)
	}
	key, err := splitKey(rest[1:])
	return core.SyncStatus(rest[0]), key, err
}

func splitKey(b []byte) (core.Key, error) {
	typeName, identifier, ok := bytes.Cut(b, []byte{keySep})
	if !ok {
		return core.Key{}, fmt.Errorf("%w: %q", core.ErrMalformedKey, b)
	}
	return core.Key{Type: string(typeName), Identifier: string(identifier)}, nil
}
