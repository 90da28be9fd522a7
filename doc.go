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


// Package garage persists object graphs.
//
// Application types describe their fields through codec.Mapper and are
// parked into a Garage, which splits each graph into one generic record per
// identifiable object. Records are keyed by (type name, identifier); parking
// the same key again updates the record in place and keeps its creation date.
//
//	g, err := garage.Open(ctx, garage.NewConfig(garage.WithBadgerDir(dir)))
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//
//	garage.Register[Task](g)
//	garage.Register[Person](g)
//
//	owner := &Person{ID: "p1", Name: "Bob"}
//	if err := g.Park(ctx, &Task{ID: "t1", Title: "A", Owner: owner}); err != nil {
//	    return err
//	}
//	task, err := garage.RetrieveAs[Task](ctx, g, "t1")
//
// # Saving
//
// Mutations are staged in the record store's working set. With autosave on
// (the default) every mutating operation commits right away; with it off,
// mutations accumulate until Save. Commit failures are logged and the
// mutations stay pending.
//
// # Sync status
//
// Every record carries a core.SyncStatus for an external sync process.
// SetSyncStatus changes it without touching the payload, and Fetch lists
// records by status.
package garage
