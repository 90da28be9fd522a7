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


package storage

import "fmt"

// Storage unit formats.
const (
	// FormatBadger is a BadgerDB directory on disk.
	FormatBadger = "badger"
	// FormatMemory is an in-memory BadgerDB instance, lost on close.
	FormatMemory = "memory"
)

// Description names one storage unit to open at bootstrap.
type Description struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
	Format   string `yaml:"format"`
}

// Validate checks that d can be opened.
func (d Description) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescription)
	}
	switch d.Format {
	case FormatBadger:
		if d.Location == "" {
			return fmt.Errorf("%w: %s: location is required for format %s", ErrInvalidDescription, d.Name, d.Format)
		}
	case FormatMemory:
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownFormat, d.Name, d.Format)
	}
	return nil
}

// ValidateDescriptions validates each description and rejects duplicate names.
func ValidateDescriptions(descs []Description) error {
	if len(descs) == 0 {
		return ErrNoStorageUnits
	}
	names := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, ok := names[d.Name]; ok {
			return fmt.Errorf("%w: duplicate name %s", ErrInvalidDescription, d.Name)
		}
		names[d.Name] = struct{}{}
	}
	return nil
}
