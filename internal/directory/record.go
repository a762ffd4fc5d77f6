package directory

import (
	"strconv"
	"strings"
)

// Record is one raw physician payload from the directory API. The remote
// service is loosely typed: the "same" field can be a string, an object,
// an array of strings, or absent entirely depending on the endpoint.
// These accessors normalize that early so the mapper never type-sniffs.
type Record map[string]any

// Str returns the value at key as a trimmed string, tolerating numeric
// payloads. Missing or non-scalar values yield "".
func (r Record) Str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// FirstStr returns the first non-empty string among keys.
func (r Record) FirstStr(keys ...string) string {
	for _, key := range keys {
		if s := r.Str(key); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the value at key as a float64, parsing string payloads.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Obj returns a nested object at key, or nil.
func (r Record) Obj(key string) Record {
	v, ok := r[key]
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// ObjList returns the value at key as a list of objects. A single object
// is promoted to a one-element list.
func (r Record) ObjList(key string) []Record {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]Record, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Record(m))
			}
		}
		return out
	case map[string]any:
		return []Record{Record(t)}
	}
	return nil
}

// StrList returns the value at key as a list of strings. Elements that
// are objects contribute their "name" field; empty entries are dropped.
func (r Record) StrList(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		if s := r.Str(key); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := Record(t).FirstStr("name", "title"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// FirstList returns the first non-empty string list among keys.
func (r Record) FirstList(keys ...string) []string {
	for _, key := range keys {
		if list := r.StrList(key); len(list) > 0 {
			return list
		}
	}
	return nil
}

// FloatList returns the value at key as a list of float64s, used for
// GeoJSON coordinate pairs.
func (r Record) FloatList(key string) []float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := item.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}
