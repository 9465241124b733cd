/*
Copyright 2023 The Funchost Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package registry

import (
	"sync"

	"github.com/nuclio/errors"
)

// Registry holds ordered lists of registrees per kind. Multiple registrees
// may share a kind; lookups return them newest first, so a later
// registration overrides an earlier one without removing it. Registration
// happens at startup, lookups happen on the request path, hence the
// read/write lock.
type Registry struct {
	className  string
	lock       sync.RWMutex
	registered map[string][]interface{}
}

func NewRegistry(className string) *Registry {
	return &Registry{
		className:  className,
		registered: map[string][]interface{}{},
	}
}

// Register appends a registree under the given kind
func (r *Registry) Register(kind string, registree interface{}) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.registered[kind] = append(r.registered[kind], registree)
}

// Get returns the registrees for a kind in reverse registration order
func (r *Registry) Get(kind string) ([]interface{}, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	registrees, found := r.registered[kind]
	if !found || len(registrees) == 0 {
		return nil, errors.Errorf("Registry for %s failed to find: %s", r.className, kind)
	}

	reversed := make([]interface{}, len(registrees))
	for registreeIndex, registree := range registrees {
		reversed[len(registrees)-1-registreeIndex] = registree
	}

	return reversed, nil
}

// GetKinds returns all registered kinds
func (r *Registry) GetKinds() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	kinds := make([]string, 0, len(r.registered))
	for kind := range r.registered {
		kinds = append(kinds, kind)
	}

	return kinds
}
