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

import "errors"

var (
	// ErrMalformedPayload indicates payload bytes that are not a valid document.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrDocumentTooDeep indicates a document nested beyond maxDepth levels.
	ErrDocumentTooDeep = errors.New("document nested too deeply")

	// ErrNoResolver indicates a reference decoded without a ResolveFunc.
	ErrNoResolver = errors.New("no resolver for references")

	// ErrElementShape indicates a sequence element or optional that did not map exactly one value.
	ErrElementShape = errors.New("element must map exactly one value")
)
