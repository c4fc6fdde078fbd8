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

package compiler

import "fmt"

// node is one level of a domain's segment trie. Literal children sit in a
// small slice scanned linearly, which beats a map for the fan-outs real
// route tables have. At most one param child and one wildcard child can
// exist per node; the wildcard is terminal.
type node struct {
	edges    []edge
	param    *paramChild
	wildcard *wildcardChild
	routes   map[string]*Route
}

type edge struct {
	label string
	child *node
}

type paramChild struct {
	name  string
	child *node
}

type wildcardChild struct {
	name   string
	routes map[string]*Route
}

func (n *node) edge(label string) *node {
	for i := range n.edges {
		if n.edges[i].label == label {
			return n.edges[i].child
		}
	}
	return nil
}

// insert adds a compiled route under its parsed template. It rejects
// sibling captures with conflicting names and duplicate method
// registrations at the same path.
func (n *node) insert(segs []templateSeg, method string, rt *Route) error {
	cur := n
	for i, seg := range segs {
		switch seg.kind {
		case segLiteral:
			child := cur.edge(seg.text)
			if child == nil {
				child = &node{}
				cur.edges = append(cur.edges, edge{label: seg.text, child: child})
			}
			cur = child

		case segParam:
			if cur.param == nil {
				cur.param = &paramChild{name: seg.text, child: &node{}}
			} else if cur.param.name != seg.text {
				return fmt.Errorf("parameter %q conflicts with sibling parameter %q", seg.text, cur.param.name)
			}
			cur = cur.param.child

		case segWildcard:
			if i != len(segs)-1 {
				return fmt.Errorf("wildcard %q is not the final segment", seg.text)
			}
			if cur.wildcard == nil {
				cur.wildcard = &wildcardChild{name: seg.text, routes: make(map[string]*Route, 2)}
			} else if cur.wildcard.name != seg.text {
				return fmt.Errorf("wildcard %q conflicts with sibling wildcard %q", seg.text, cur.wildcard.name)
			}
			if _, dup := cur.wildcard.routes[method]; dup {
				return fmt.Errorf("duplicate route %s %s", method, rt.Template)
			}
			cur.wildcard.routes[method] = rt
			return nil
		}
	}

	if cur.routes == nil {
		cur.routes = make(map[string]*Route, 2)
	}
	if _, dup := cur.routes[method]; dup {
		return fmt.Errorf("duplicate route %s %s", method, rt.Template)
	}
	cur.routes[method] = rt
	return nil
}

// lookup walks the trie for a normalized path and returns the method map
// of the structural leaf, appending captured values to buf in path order.
// The walk is greedy: a literal edge is always preferred over the param
// child, the param child over the wildcard, and a dead end deeper in the
// trie is a miss rather than a reason to backtrack.
func (n *node) lookup(path string, buf []string) (map[string]*Route, []string) {
	if path == "/" {
		return n.routes, buf
	}

	cur := n
	start := 1
	for start <= len(path) {
		end := start
		for end < len(path) && path[end] != '/' {
			end++
		}
		seg := path[start:end]

		if child := cur.edge(seg); child != nil {
			cur = child
		} else if cur.param != nil && seg != "" {
			buf = append(buf, seg)
			cur = cur.param.child
		} else if cur.wildcard != nil {
			buf = append(buf, path[start:])
			return cur.wildcard.routes, buf
		} else {
			return nil, buf
		}
		start = end + 1
	}
	return cur.routes, buf
}
