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


package core

import (
	"fmt"
	"strings"
)

// SyncStatus tracks where a record stands with respect to an external sync
// process. The engine stores it but never acts on it.
type SyncStatus int

const (
	// SyncStatusNeedsUpload is the zero value. Records whose status was never
	// set are treated as needing upload.
	SyncStatusNeedsUpload SyncStatus = iota
	// SyncStatusUploaded marks a record the remote side has acknowledged.
	SyncStatusUploaded
	// SyncStatusNeedsDownload marks a record with a newer remote version.
	SyncStatusNeedsDownload
)

var syncStatusNames = [...]string{
	SyncStatusNeedsUpload:   "needs-upload",
	SyncStatusUploaded:      "uploaded",
	SyncStatusNeedsDownload: "needs-download",
}

func (s SyncStatus) String() string {
	if s.Valid() {
		return syncStatusNames[s]
	}
	return fmt.Sprintf("SyncStatus(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s SyncStatus) Valid() bool {
	return s >= SyncStatusNeedsUpload && s <= SyncStatusNeedsDownload
}

// ParseSyncStatus converts a status name (as printed by String) back into a SyncStatus.
func ParseSyncStatus(name string) (SyncStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range syncStatusNames {
		if n == name {
			return SyncStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSyncStatus, name)
}

// SyncStatuses returns every declared status in order.
func SyncStatuses() []SyncStatus {
	return []SyncStatus{SyncStatusNeedsUpload, SyncStatusUploaded, SyncStatusNeedsDownload}
}
