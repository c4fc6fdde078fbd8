// Copyright 2025 The Rivaas Authors
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

package hostmux

import (
	"fmt"
	"sync"

	"rivaas.dev/hostmux/compiler"
)

// registry maps the symbolic names a spec uses to concrete handlers. It
// is populated at boot through Router.Handle and Router.Middleware and
// consulted by the compiler; requests never touch it.
type registry struct {
	mu         sync.RWMutex
	middleware map[string][]compiler.Handler
	handlers   map[string]compiler.Handler
}

func newRegistry() *registry {
	return &registry{
		middleware: make(map[string][]compiler.Handler),
		handlers:   make(map[string]compiler.Handler),
	}
}

func (reg *registry) addMiddleware(name string, hs []compiler.Handler) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.middleware[name]; dup {
		return fmt.Errorf("%w: middleware %q", ErrNameTaken, name)
	}
	reg.middleware[name] = hs
	return nil
}

func (reg *registry) addHandler(name string, h compiler.Handler) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.handlers[name]; dup {
		return fmt.Errorf("%w: handler %q", ErrNameTaken, name)
	}
	reg.handlers[name] = h
	return nil
}

// ResolveMiddleware implements compiler.Resolver.
func (reg *registry) ResolveMiddleware(name string) ([]compiler.Handler, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	hs, ok := reg.middleware[name]
	if !ok {
		return nil, fmt.Errorf("middleware %q not registered", name)
	}
	return hs, nil
}

// ResolveHandler implements compiler.Resolver.
func (reg *registry) ResolveHandler(ref string) (compiler.Handler, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	h, ok := reg.handlers[ref]
	if !ok {
		return nil, fmt.Errorf("handler %q not registered", ref)
	}
	return h, nil
}
