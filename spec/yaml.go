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

package spec

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrMalformedSpec is the sentinel wrapped by every YAML shape error
// reported by Parse and Load. Match with errors.Is.
var ErrMalformedSpec = errors.New("malformed routing spec")

// Method keys recognized inside a path node.
var methodKeys = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true,
	"delete": true, "options": true, "head": true,
}

// Load reads and parses a YAML routing spec from disk.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML routing spec.
//
// The document is a mapping from domain keys to domain bodies. Domain
// declaration order is preserved, which is why decoding goes through an
// ordered map rather than struct tags: wildcard-subdomain domains match
// in the order they were written.
//
//	example.com:
//	  locales: [en, de]
//	  default_locale: en
//	  use: [requestid, accesslog]
//	  /:
//	    get: home
//	  /users/:id:
//	    constraints:
//	      id: "[0-9]+"
//	    get:
//	      to: users.show
//	      as: user
func Parse(data []byte) (*Spec, error) {
	var doc any
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSpec, err)
	}
	root, ok := doc.(yaml.MapSlice)
	if !ok {
		if doc == nil {
			return &Spec{}, nil
		}
		return nil, shapeErr("top level", "must be a mapping of domains")
	}

	s := &Spec{}
	for _, item := range root {
		host, ok := item.Key.(string)
		if !ok {
			return nil, shapeErr("top level", "domain keys must be strings")
		}
		d, err := parseDomain(host, item.Value)
		if err != nil {
			return nil, err
		}
		s.Domains = append(s.Domains, d)
	}
	return s, nil
}

func parseDomain(host string, v any) (*Domain, error) {
	body, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, shapeErr(host, "domain body must be a mapping")
	}

	d := &Domain{Host: host, Root: &Node{}}
	for _, item := range body {
		key, ok := item.Key.(string)
		if !ok {
			return nil, shapeErr(host, "keys must be strings")
		}
		switch {
		case key == "locales":
			list, err := stringList(item.Value)
			if err != nil {
				return nil, shapeErr(host, "locales must be a list of strings")
			}
			d.Locales = list
		case key == "default_locale":
			s, ok := item.Value.(string)
			if !ok {
				return nil, shapeErr(host, "default_locale must be a string")
			}
			d.DefaultLocale = s
		case key == "root_locale_redirect":
			b, ok := item.Value.(bool)
			if !ok {
				return nil, shapeErr(host, "root_locale_redirect must be a boolean")
			}
			d.RootLocaleRedirect = b
		case key == "use":
			ml, err := parseUse(item.Value)
			if err != nil {
				return nil, shapeErr(host, err.Error())
			}
			d.Use = ml
		case strings.HasPrefix(key, "/"):
			child, err := parseNode(host+key, item.Value)
			if err != nil {
				return nil, err
			}
			if d.Root.Children == nil {
				d.Root.Children = make(map[string]*Node)
			}
			d.Root.Children[key] = child
		default:
			return nil, shapeErr(host, fmt.Sprintf("unknown domain key %q", key))
		}
	}
	return d, nil
}

// parseNode decodes one path node. where is a human-readable location
// (domain plus path so far) used in error messages.
func parseNode(where string, v any) (*Node, error) {
	body, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, shapeErr(where, "path node must be a mapping")
	}

	n := &Node{}
	for _, item := range body {
		key, ok := item.Key.(string)
		if !ok {
			return nil, shapeErr(where, "keys must be strings")
		}
		switch {
		case key == "use":
			ml, err := parseUse(item.Value)
			if err != nil {
				return nil, shapeErr(where, err.Error())
			}
			n.Use = ml
		case key == "constraints":
			cs, err := stringMap(item.Value)
			if err != nil {
				return nil, shapeErr(where, "constraints must map params to patterns")
			}
			n.Constraints = cs
		case methodKeys[key]:
			rd, err := parseRouteDef(where+" "+key, item.Value)
			if err != nil {
				return nil, err
			}
			if n.Methods == nil {
				n.Methods = make(map[string]*RouteDef)
			}
			n.Methods[key] = rd
		case strings.HasPrefix(key, "/"):
			child, err := parseNode(where+key, item.Value)
			if err != nil {
				return nil, err
			}
			if n.Children == nil {
				n.Children = make(map[string]*Node)
			}
			n.Children[key] = child
		default:
			return nil, shapeErr(where, fmt.Sprintf("unknown key %q", key))
		}
	}
	return n, nil
}

func parseRouteDef(where string, v any) (*RouteDef, error) {
	// String shorthand: `get: home` means `get: {to: home}`.
	if ref, ok := v.(string); ok {
		return &RouteDef{To: ref}, nil
	}
	body, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, shapeErr(where, "route must be a handler name or a mapping")
	}

	rd := &RouteDef{}
	for _, item := range body {
		key, ok := item.Key.(string)
		if !ok {
			return nil, shapeErr(where, "keys must be strings")
		}
		switch key {
		case "to":
			s, ok := item.Value.(string)
			if !ok {
				return nil, shapeErr(where, "to must be a string")
			}
			rd.To = s
		case "as":
			s, ok := item.Value.(string)
			if !ok {
				return nil, shapeErr(where, "as must be a string")
			}
			rd.As = s
		case "use":
			ml, err := parseUse(item.Value)
			if err != nil {
				return nil, shapeErr(where, err.Error())
			}
			rd.Use = ml
		case "constraints":
			cs, err := stringMap(item.Value)
			if err != nil {
				return nil, shapeErr(where, "constraints must map params to patterns")
			}
			rd.Constraints = cs
		case "localized":
			loc, err := stringMap(item.Value)
			if err != nil {
				return nil, shapeErr(where, "localized must map locales to path templates")
			}
			rd.Localized = loc
		case "redirects_from":
			list, err := stringList(item.Value)
			if err != nil {
				return nil, shapeErr(where, "redirects_from must be a list of paths")
			}
			rd.RedirectsFrom = list
		case "redirect_status":
			st, err := intValue(item.Value)
			if err != nil {
				return nil, shapeErr(where, "redirect_status must be an integer")
			}
			rd.RedirectStatus = st
		case "sitemap":
			m, err := anyMap(item.Value)
			if err != nil {
				return nil, shapeErr(where, "sitemap must be a mapping")
			}
			rd.Sitemap = m
		case "meta":
			m, err := anyMap(item.Value)
			if err != nil {
				return nil, shapeErr(where, "meta must be a mapping")
			}
			rd.Meta = m
		default:
			return nil, shapeErr(where, fmt.Sprintf("unknown route key %q", key))
		}
	}
	return rd, nil
}

// parseUse handles the three spellings of a use: key. An explicit null
// (`use: ~`) clears the inherited list; a list of names appends.
func parseUse(v any) (*MiddlewareList, error) {
	if v == nil {
		return &MiddlewareList{Clear: true}, nil
	}
	names, err := stringList(v)
	if err != nil {
		return nil, errors.New("use must be null or a list of middleware names")
	}
	return &MiddlewareList{Names: names}, nil
}

func stringList(v any) ([]string, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, errors.New("not a list")
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		out = append(out, s)
	}
	return out, nil
}

func stringMap(v any) (map[string]string, error) {
	raw, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, errors.New("not a mapping")
	}
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		k, ok := item.Key.(string)
		if !ok {
			return nil, errors.New("not a string key")
		}
		val, ok := item.Value.(string)
		if !ok {
			return nil, errors.New("not a string value")
		}
		out[k] = val
	}
	return out, nil
}

func anyMap(v any) (map[string]any, error) {
	raw, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, errors.New("not a mapping")
	}
	out := make(map[string]any, len(raw))
	for _, item := range raw {
		k, ok := item.Key.(string)
		if !ok {
			return nil, errors.New("not a string key")
		}
		out[k] = normalize(item.Value)
	}
	return out, nil
}

// normalize converts nested ordered maps in opaque metadata back to
// plain map[string]any so callers see ordinary Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			if k, ok := item.Key.(string); ok {
				m[k] = normalize(item.Value)
			}
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

func intValue(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	default:
		return 0, errors.New("not an integer")
	}
}

func shapeErr(where, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedSpec, where, msg)
}
