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

import "sync"

var contextPool = sync.Pool{
	New: func() any {
		c := &Context{}
		c.reset()
		return c
	},
}

// acquireContext takes a context from the pool. The type assertion is
// checked so pool corruption surfaces as a clear panic instead of a
// confusing one.
func acquireContext(r *Router) *Context {
	c, ok := contextPool.Get().(*Context)
	if !ok {
		panic("hostmux: pool corruption - contextPool returned non-Context type")
	}
	c.router = r
	return c
}

// releaseContext resets a context and returns it to the pool. Dispatch
// defers it, so the reset runs on normal completion, abort, and panic
// alike.
func releaseContext(c *Context) {
	c.reset()
	c.router = nil
	contextPool.Put(c)
}
