// Package identifier finds the lead field, or fields, an integration needs to look a
// person up in its external service.
package identifier

import (
	"fmt"
	"strings"
)

// Spec is an integration's identifier declaration: a single partial field name, or an
// ordered list of hints that must each be satisfied by a distinct field.
type Spec struct {
	hints []string
	multi bool
}

// Single declares one partial field name, e.g. "email".
func Single(hint string) Spec {
	return Spec{hints: []string{hint}}
}

// Multi declares a composite identifier, one field per hint.
func Multi(hints ...string) Spec {
	return Spec{hints: append([]string(nil), hints...), multi: true}
}

func (s Spec) IsMulti() bool { return s.multi }

func (s Spec) Hints() []string { return append([]string(nil), s.hints...) }

// IsZero reports a spec that can never match.
func (s Spec) IsZero() bool {
	for _, h := range s.hints {
		if h != "" {
			return false
		}
	}
	return true
}

// Field is one lead field. Value is either a plain value or a {"value": ...} composite.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Group is a named field group such as "core" or "social".
type Group struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldSet is an ordered set of lead fields, optionally split into groups.
type FieldSet struct {
	Groups []Group `json:"groups"`
}

// Flat builds an ungrouped field set.
func Flat(fields ...Field) FieldSet {
	return FieldSet{Groups: []Group{{Fields: fields}}}
}

// Grouped builds a field set from named groups, scanned in the given order.
func Grouped(groups ...Group) FieldSet {
	return FieldSet{Groups: groups}
}

// Match is a resolved identifier. Value is set for a single spec, Fields for a multi spec.
type Match struct {
	Value  string
	Fields []Field
}

func (m Match) IsComposite() bool { return m.Fields != nil }

// Map returns the composite fields keyed by name, or nil for a single match.
func (m Match) Map() map[string]string {
	if m.Fields == nil {
		return nil
	}
	out := make(map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Name] = ValueString(f.Value)
	}
	return out
}

// Get returns the value collected for field name.
func (m Match) Get(name string) string {
	for _, f := range m.Fields {
		if f.Name == name {
			return ValueString(f.Value)
		}
	}
	return ""
}

// Resolve scans fields for spec. Names match by case-sensitive containment and the first
// matching field wins. Fields with an empty value never match. The boolean is false when
// no field satisfies the spec.
func Resolve(spec Spec, fields FieldSet) (Match, bool) {
	if spec.IsZero() {
		return Match{}, false
	}
	if !spec.multi {
		return resolveSingle(spec.hints[0], fields)
	}

	acc := accumulator{satisfied: make([]bool, len(spec.hints))}
	done := false
	for _, group := range fields.Groups {
		for _, f := range group.Fields {
			acc, done = collect(spec.hints, f, acc)
			if done {
				return Match{Fields: acc.fields}, true
			}
		}
	}
	if len(acc.fields) == 0 {
		return Match{}, false
	}
	return Match{Fields: acc.fields}, true
}

func resolveSingle(hint string, fields FieldSet) (Match, bool) {
	for _, group := range fields.Groups {
		for _, f := range group.Fields {
			if !strings.Contains(f.Name, hint) {
				continue
			}
			if v := ValueString(f.Value); v != "" {
				return Match{Value: v}, true
			}
		}
	}
	return Match{}, false
}

type accumulator struct {
	fields    []Field
	satisfied []bool
}

// collect offers f to the first unsatisfied hint it contains and returns the new state
// together with whether every hint is now satisfied.
func collect(hints []string, f Field, acc accumulator) (accumulator, bool) {
	value := ValueString(f.Value)
	if value == "" || acc.has(value) {
		return acc, acc.complete()
	}
	for i, hint := range hints {
		if acc.satisfied[i] || hint == "" || !strings.Contains(f.Name, hint) {
			continue
		}
		next := accumulator{
			fields:    append(append([]Field(nil), acc.fields...), Field{Name: f.Name, Value: value}),
			satisfied: append([]bool(nil), acc.satisfied...),
		}
		next.satisfied[i] = true
		return next, next.complete()
	}
	return acc, acc.complete()
}

func (a accumulator) has(value string) bool {
	for _, f := range a.fields {
		if ValueString(f.Value) == value {
			return true
		}
	}
	return false
}

func (a accumulator) complete() bool {
	for _, ok := range a.satisfied {
		if !ok {
			return false
		}
	}
	return len(a.satisfied) > 0
}

// ValueString unwraps {"value": ...} composites and renders scalars as strings.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return ValueString(t["value"])
	case map[string]string:
		return strings.TrimSpace(t["value"])
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
