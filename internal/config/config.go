// Copyright 2026 The pvcheck Authors
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

// Package config loads and deep-merges the JSON documents under
// configuration/ that parameterize the suggestion and transformation
// methods (known URL directories, subdomain substitutions, clue regexes,
// and so on), grounded on the teacher's reliance on encoding/json for all
// of its own on-disk schemas rather than a third-party config library.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Doc is a loaded, merged configuration document: method name -> params.
type Doc map[string]map[string]any

// Load reads every *.json file matching glob under dir, in sorted filename
// order, and deep-merges them into a single Doc.
func Load(dir, glob string) (Doc, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, errors.Wrap(err, "globbing configuration files")
	}
	sort.Strings(matches)
	merged := Doc{}
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
		if err := mergeInto(merged, doc, path); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func mergeInto(dst Doc, src map[string]any, path string) error {
	for key, val := range src {
		if strings.HasPrefix(key, "_") {
			continue
		}
		params, ok := val.(map[string]any)
		if !ok {
			return errors.Errorf("%s: top-level key %q must map to an object", path, key)
		}
		existing, ok := dst[key]
		if !ok {
			dst[key] = map[string]any{}
			existing = dst[key]
		}
		merged, err := mergeParams(existing, params, key, path)
		if err != nil {
			return err
		}
		dst[key] = merged
	}
	return nil
}

func mergeParams(dst, src map[string]any, method, path string) (map[string]any, error) {
	for k, v := range src {
		if strings.HasPrefix(k, "_") {
			continue
		}
		cur, exists := dst[k]
		if !exists {
			dst[k] = v
			continue
		}
		merged, err := mergeValue(cur, v, method+"."+k, path)
		if err != nil {
			return nil, err
		}
		dst[k] = merged
	}
	return dst, nil
}

func mergeValue(a, b any, field, path string) (any, error) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%s: %s: cannot merge object with %T", path, field, b)
		}
		for k, v := range bv {
			if strings.HasPrefix(k, "_") {
				continue
			}
			if cur, exists := av[k]; exists {
				merged, err := mergeValue(cur, v, field+"."+k, path)
				if err != nil {
					return nil, err
				}
				av[k] = merged
			} else {
				av[k] = v
			}
		}
		return av, nil
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return nil, errors.Errorf("%s: %s: cannot merge list with %T", path, field, b)
		}
		return append(av, bv...), nil
	default:
		if a == b {
			return a, nil
		}
		return nil, errors.Errorf("%s: %s: conflicting scalar values %v vs %v", path, field, a, b)
	}
}

// StringSlice reads params[key] as a []string, returning nil if absent.
func StringSlice(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// String reads params[key] as a string, returning "" if absent.
func String(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
