// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan provides a generic deny-set tree walker.
//
// # Description
//
// Walks arbitrary nested values (structs, maps, slices, pointers) and
// reports every field or map key whose name appears in a deny set. The
// walker is deliberately decoupled from any entity schema: the invariant
// gate uses it to prove raw input carries no derivable field, whatever
// shape that input takes.
//
// # Thread Safety
//
// Walk is a pure function. Safe for concurrent use.
package scan

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Hit records one denied key found during a walk.
type Hit struct {
	// Path is the dotted location of the hit, e.g. "companies[2].runwayMonths".
	Path string `json:"path"`

	// Key is the denied key that matched.
	Key string `json:"key"`
}

func (h Hit) String() string {
	return fmt.Sprintf("%s (denied key %q)", h.Path, h.Key)
}

// Walk traverses v and returns a hit for every denied key encountered.
//
// Description:
//
//	Struct fields match on their json tag name when present, otherwise on
//	the Go field name. Map keys match on their string form. Matching is
//	exact and case-sensitive; the deny set owns normalization.
//
// Inputs:
//
//	v - The value to walk. May be nil.
//	deny - Keys that must not appear anywhere in v.
//
// Outputs:
//
//	[]Hit - All matches in traversal order. Empty when v is clean.
func Walk(v any, deny map[string]bool) []Hit {
	if v == nil || len(deny) == 0 {
		return nil
	}
	var hits []Hit
	walkValue(reflect.ValueOf(v), "", deny, &hits, make(map[uintptr]bool))
	return hits
}

func walkValue(rv reflect.Value, path string, deny map[string]bool, hits *[]Hit, seen map[uintptr]bool) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return
		}
		// Guard against cyclic pointers.
		if rv.Kind() == reflect.Pointer {
			ptr := rv.Pointer()
			if seen[ptr] {
				return
			}
			seen[ptr] = true
		}
		walkValue(rv.Elem(), path, deny, hits, seen)

	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := fieldName(f)
			if deny[name] {
				*hits = append(*hits, Hit{Path: join(path, name), Key: name})
			}
			walkValue(rv.Field(i), join(path, name), deny, hits, seen)
		}

	case reflect.Map:
		// Map iteration order is randomized; sort by key string so hit
		// order is stable across runs.
		keys := rv.MapKeys()
		named := make([]mapEntry, len(keys))
		for i, key := range keys {
			named[i] = mapEntry{name: fmt.Sprintf("%v", key.Interface()), key: key}
		}
		sort.Slice(named, func(i, j int) bool { return named[i].name < named[j].name })
		for _, e := range named {
			if deny[e.name] {
				*hits = append(*hits, Hit{Path: join(path, e.name), Key: e.name})
			}
			walkValue(rv.MapIndex(e.key), join(path, e.name), deny, hits, seen)
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			walkValue(rv.Index(i), fmt.Sprintf("%s[%d]", path, i), deny, hits, seen)
		}
	}
}

type mapEntry struct {
	name string
	key  reflect.Value
}

// fieldName returns the json tag name for a struct field, or the field name.
func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
