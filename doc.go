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

// Package hostmux is a multi-domain HTTP route matcher and request
// dispatcher driven by a declarative routing spec.
//
// Routes for any number of domains are described once, in YAML or in Go,
// then compiled into an immutable match table: per-domain segment tries
// with literal > parameter > wildcard priority, resolved middleware
// pipelines, a global route name index for reverse URL generation, and
// redirect tables. Handlers and middleware are referenced by name and
// resolved exactly once, at compile time.
//
// A minimal server:
//
//	r := hostmux.MustNew()
//	r.Handle("home", func(c *hostmux.Context) {
//	    c.String(http.StatusOK, "hello")
//	})
//
//	s, _ := spec.Parse([]byte(`
//	example.com:
//	  /:
//	    get: home
//	`))
//	if err := r.Routes(s); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", r)
//
// Domains are matched exact key first, then wildcard-subdomain patterns
// ("*.example.com", declaration order, subdomain captured), then the "*"
// fallback. Each domain can declare locales; localized routes expand to
// one variant per locale under a "/<locale>" prefix, and reverse
// generation picks the variant for the ambient or requested locale.
//
// The match table is published with an atomic pointer swap, so Routes may
// be called again at runtime: in-flight requests finish against the table
// they started with.
package hostmux
