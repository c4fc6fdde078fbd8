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

// Package compiler turns a declarative routing spec into an immutable
// match table.
//
// Compile walks the spec once, resolving every middleware name and handler
// reference through a Resolver, expanding localized routes, merging
// inherited middleware and constraints, and building per-domain segment
// tries plus static-path hash tables with bloom-filter negative lookups.
// The resulting Table is never mutated: routers publish a new Table
// wholesale and each request matches against the snapshot captured at
// entry.
//
// All spec problems surface at compile time as typed errors matchable with
// errors.Is; Table lookups never fail, they only miss.
package compiler
