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

type testPerson struct {
	ID      string
	Name    string
	Friend  *testPerson
	Address *testAddress
}

func (p *testPerson) TypeName() string   { return "Person" }
func (p *testPerson) Identifier() string { return p.ID }
func (p *testPerson) MapFields(m Mapper) {
	m.String("id", &p.ID, Required)
	m.String("name", &p.Name)
	Ref(m, "friend", &p.Friend)
	Optional(m, "address", &p.Address, func(m Mapper, a *testAddress) {
		m.Struct("", a)
	})
}

type testAddress struct {
	Street string
	City   string
}

func (a *testAddress) MapFields(m Mapper) {
	m.String("street", &a.Street)
	m.String("city", &a.City, Required)
}

type testStep struct {
	Label string
	Done  bool
}

func (s *testStep) MapFields(m Mapper) {
	m.String("label", &s.Label)
	m.Bool("done", &s.Done)
}

type testTask struct {
	ID         string
	Title      string
	Priority   int
	Points     int64
	Estimate   float64
	Done       bool
	Due        time.Time
	Attachment []byte
	Tags       []string
	Meta       map[string]string
	Note       *string
	Steps      []testStep
	Owner      *testPerson
	Watchers   []*testPerson
	Parent     *testTask
}

func (t *testTask) TypeName() string   { return "Task" }
func (t *testTask) Identifier() string { return t.ID }
func (t *testTask) MapFields(m Mapper) {
	m.String("id", &t.ID, Required)
	m.String("title", &t.Title)
	m.Int("priority", &t.Priority)
	m.Int64("points", &t.Points)
	m.Float64("estimate", &t.Estimate)
	m.Bool("done", &t.Done)
	m.Time("due", &t.Due)
	m.Bytes("attachment", &t.Attachment)
	m.Strings("tags", &t.Tags)
	m.StringMap("meta", &t.Meta)
	Optional(m, "note", &t.Note, func(m Mapper, s *string) {
		m.String("", s)
	})
	Structs(m, "steps", &t.Steps)
	Ref(m, "owner", &t.Owner)
	Refs(m, "watchers", &t.Watchers)
	Ref(m, "parent", &t.Parent)
}

// testTaskV2 adds a field testTask does not know about.
type testTaskV2 struct {
	ID       string
	Title    string
	Severity string
}

func (t *testTaskV2) TypeName() string   { return "Task" }
func (t *testTaskV2) Identifier() string { return t.ID }
func (t *testTaskV2) MapFields(m Mapper) {
	m.String("id", &t.ID)
	m.String("title", &t.Title)
	m.String("severity", &t.Severity)
}

// testTaskWrongTitle stores title as an integer.
type testTaskWrongTitle struct {
	ID    string
	Title int
}

func (t *testTaskWrongTitle) TypeName() string   { return "Task" }
func (t *testTaskWrongTitle) Identifier() string { return t.ID }
func (t *testTaskWrongTitle) MapFields(m Mapper) {
	m.String("id", &t.ID)
	m.Int("title", &t.Title)
}

// mapResolver resolves references from a fixed set of objects.
type mapResolver map[string]Object

func (r mapResolver) resolve(key core.Key) (Object, error) {
	if obj, ok := r[key.String()]; ok {
		return obj, nil
	}
	return nil, &core.DanglingReferenceError{To: key}
}
