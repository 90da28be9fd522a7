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


// Package rekey re-encrypts every record payload in a garage under a new
// encryption key.
//
// Records are visited in batches. Each payload is opened with the old
// encryptor, checked against the digest recorded when it was parked, sealed
// with the new encryptor and staged as an update. Every batch is committed
// with exponential backoff. Creation dates, sync statuses and digests are
// left untouched.
//
// Payloads that already open with the new encryptor are counted as current
// and left alone, so a run that stopped part way can be repeated. Check
// performs the same reads without writing and reports records that open
// with neither key before anything is committed.
package rekey
