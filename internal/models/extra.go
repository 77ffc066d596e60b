package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds JSON keys a record type does not model. Upstream pipeline steps
// write more than the review engine reads, and those keys must survive a
// load/save cycle untouched.
type Extra map[string]json.RawMessage

var knownFieldsCache sync.Map // reflect.Type -> map[string]bool

// knownFields returns the set of JSON keys declared on struct type t.
func knownFields(t reflect.Type) map[string]bool {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]bool)
	}
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}
	knownFieldsCache.Store(t, fields)
	return fields
}

// decodeWithExtra unmarshals data into target (a pointer to a struct alias)
// and returns every key of data that target's type does not declare.
func decodeWithExtra(data []byte, target any) (Extra, error) {
	if err := json.Unmarshal(data, target); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	known := knownFields(reflect.TypeOf(target).Elem())
	var extra Extra
	for k, v := range raw {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[k] = v
	}
	return extra, nil
}

// encodeWithExtra marshals v and merges extra keys that v does not set.
func encodeWithExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

// String decodes key as a string. Missing, null or non-string values read
// as "".
func (x Extra) String(key string) string {
	raw, ok := x[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Strings decodes key as a list of strings, skipping null and non-string
// items.
func (x Extra) Strings(key string) []string {
	raw, ok := x[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if string(item) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
