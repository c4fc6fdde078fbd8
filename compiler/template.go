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

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingParam is returned by Pattern.Build when a template parameter
// has no value.
var ErrMissingParam = errors.New("missing route parameter")

type segKind uint8

const (
	segLiteral segKind = iota
	segParam
	segWildcard
)

// templateSeg is one parsed segment of a path template. text holds the
// literal text, or the parameter name for param and wildcard segments.
type templateSeg struct {
	kind segKind
	text string
}

// parseTemplate splits a path template into segments and validates its
// structure: templates start with "/", parameter names are non-empty and
// unique, and a wildcard can only appear as the final segment. "/" parses
// to zero segments.
func parseTemplate(tpl string) ([]templateSeg, error) {
	if tpl == "" || tpl[0] != '/' {
		return nil, fmt.Errorf("template %q must start with '/'", tpl)
	}
	if tpl == "/" {
		return nil, nil
	}

	parts := strings.Split(tpl[1:], "/")
	segs := make([]templateSeg, 0, len(parts))
	seen := map[string]bool{}
	for i, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("template %q has an empty segment", tpl)
		case part[0] == ':':
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("template %q has an unnamed parameter", tpl)
			}
			if seen[name] {
				return nil, fmt.Errorf("template %q repeats parameter %q", tpl, name)
			}
			seen[name] = true
			segs = append(segs, templateSeg{kind: segParam, text: name})
		case part[0] == '*':
			name := part[1:]
			if name == "" {
				name = "path"
			}
			if seen[name] {
				return nil, fmt.Errorf("template %q repeats parameter %q", tpl, name)
			}
			if i != len(parts)-1 {
				return nil, fmt.Errorf("template %q has a wildcard before the final segment", tpl)
			}
			seen[name] = true
			segs = append(segs, templateSeg{kind: segWildcard, text: name})
		default:
			segs = append(segs, templateSeg{kind: segLiteral, text: part})
		}
	}
	return segs, nil
}

// paramNames extracts the capture names of a parsed template in order.
func paramNames(segs []templateSeg) []string {
	var names []string
	for _, s := range segs {
		if s.kind != segLiteral {
			names = append(names, s.text)
		}
	}
	return names
}

// Pattern is a pre-parsed path template used for reverse URL generation.
type Pattern struct {
	template string
	segs     []templateSeg
	params   []string
}

func newPattern(tpl string) (*Pattern, error) {
	segs, err := parseTemplate(tpl)
	if err != nil {
		return nil, err
	}
	return &Pattern{template: tpl, segs: segs, params: paramNames(segs)}, nil
}

// Template returns the original path template.
func (p *Pattern) Template() string { return p.template }

// Params returns the parameter names the template requires, in path order.
// Callers must not mutate the returned slice.
func (p *Pattern) Params() []string { return p.params }

// Build substitutes params into the template and percent-encodes each
// value. A missing parameter returns an error wrapping ErrMissingParam.
// Wildcard values may span several segments; each piece is encoded
// separately so embedded slashes survive.
func (p *Pattern) Build(params map[string]string) (string, error) {
	if len(p.segs) == 0 {
		return "/", nil
	}

	var b strings.Builder
	b.Grow(len(p.template) + 16)
	for _, seg := range p.segs {
		b.WriteByte('/')
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.text)
		case segParam:
			val, ok := params[seg.text]
			if !ok {
				return "", fmt.Errorf("%w: %q in template %q", ErrMissingParam, seg.text, p.template)
			}
			b.WriteString(url.PathEscape(val))
		case segWildcard:
			val, ok := params[seg.text]
			if !ok {
				return "", fmt.Errorf("%w: %q in template %q", ErrMissingParam, seg.text, p.template)
			}
			for i, piece := range strings.Split(val, "/") {
				if i > 0 {
					b.WriteByte('/')
				}
				b.WriteString(url.PathEscape(piece))
			}
		}
	}
	return b.String(), nil
}
