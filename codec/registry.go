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

	"github.com/poiesic/garage/core"
)

// Registry maps type names to factories producing empty objects to decode into.
// It is not safe for concurrent registration.
type Registry struct {
	factories map[string]func() Object
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Object)}
}

// Register adds or replaces the factory for typeName.
func (r *Registry) Register(typeName string, factory func() Object) {
	r.factories[typeName] = factory
}

// Registered reports whether typeName has a factory.
func (r *Registry) Registered(typeName string) bool {
	_, ok := r.factories[typeName]
	return ok
}

// New returns a fresh object of typeName.
func (r *Registry) New(typeName string) (Object, error) {
	factory, ok := r.factories[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownType, typeName)
	}
	return factory(), nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register registers *T under the name its zero value reports and returns that name.
func Register[T any, PT interface {
	*T
	Object
}](r *Registry) string {
	typeName := PT(new(T)).TypeName()
	r.Register(typeName, func() Object {
		return PT(new(T))
	})
	return typeName
}
