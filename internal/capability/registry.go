package capability

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the value type a field accepts.
type Type string

const (
	TypeInt    Type = "int"
	TypeString Type = "string"
	TypeEnum   Type = "enum"
)

// Operator names a predicate form the query language can express.
type Operator string

const (
	OpEq       Operator = "eq"
	OpIn       Operator = "in"
	OpRange    Operator = "range"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpWildcard Operator = "wildcard"
	OpHas      Operator = "has"
)

// IsComparison reports whether op is one of the ordering comparisons.
func (op Operator) IsComparison() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Capability describes one searchable field.
type Capability struct {
	ID          FieldID    `json:"-"`
	Key         string     `json:"key"`
	Aliases     []string   `json:"aliases,omitempty"`
	Type        Type       `json:"type"`
	Shape       Shape      `json:"shape"`
	Domain      Domain     `json:"domain"`
	Operators   []Operator `json:"operators"`
	Values      []string   `json:"values,omitempty"`
	Description string     `json:"desc,omitempty"`
}

// Supports reports whether the field accepts op.
func (c Capability) Supports(op Operator) bool {
	return slices.Contains(c.Operators, op)
}

// CanonicalValue maps an enum value to its registered spelling. Non-enum
// fields accept any value unchanged.
func (c Capability) CanonicalValue(value string) (string, bool) {
	if c.Type != TypeEnum {
		return value, true
	}
	for _, candidate := range c.Values {
		if strings.EqualFold(candidate, value) {
			return candidate, true
		}
	}
	return "", false
}

func (c Capability) clone() Capability {
	c.Aliases = slices.Clone(c.Aliases)
	c.Operators = slices.Clone(c.Operators)
	c.Values = slices.Clone(c.Values)
	return c
}

// Registry is an immutable set of field capabilities.
type Registry struct {
	fields map[FieldID]Capability
	names  map[string]FieldID
	order  []FieldID
}

// NewRegistry validates caps and indexes them by key and alias.
func NewRegistry(caps []Capability) (*Registry, error) {
	reg := &Registry{
		fields: make(map[FieldID]Capability, len(caps)),
		names:  make(map[string]FieldID, len(caps)*2),
	}
	for _, c := range caps {
		if !c.ID.Valid() {
			return nil, fmt.Errorf("capability %q: unknown field id %d", c.Key, uint8(c.ID))
		}
		if _, dup := reg.fields[c.ID]; dup {
			return nil, fmt.Errorf("capability %q: declared twice", c.Key)
		}
		if len(c.Operators) == 0 {
			return nil, fmt.Errorf("capability %q: no operators", c.Key)
		}
		if c.Type == TypeEnum && len(c.Values) == 0 {
			return nil, fmt.Errorf("capability %q: enum without values", c.Key)
		}
		c = c.clone()
		c.Key = c.ID.Key()
		c.Shape = c.ID.Shape()
		c.Domain = c.ID.Domain()
		for _, name := range append([]string{c.Key}, c.Aliases...) {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || name == "has" {
				return nil, fmt.Errorf("capability %q: invalid name %q", c.Key, name)
			}
			if other, taken := reg.names[name]; taken {
				return nil, fmt.Errorf("capability %q: name %q already used by %s", c.Key, name, other)
			}
			reg.names[name] = c.ID
		}
		reg.fields[c.ID] = c
		reg.order = append(reg.order, c.ID)
	}
	return reg, nil
}

// Lookup resolves a case-insensitive field name or alias.
func (r *Registry) Lookup(name string) (Capability, bool) {
	if r == nil {
		return Capability{}, false
	}
	id, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Capability{}, false
	}
	return r.fields[id].clone(), true
}

// Field returns the capability registered for id.
func (r *Registry) Field(id FieldID) (Capability, bool) {
	if r == nil {
		return Capability{}, false
	}
	c, ok := r.fields[id]
	if !ok {
		return Capability{}, false
	}
	return c.clone(), true
}

// List returns every capability in declaration order.
func (r *Registry) List() []Capability {
	if r == nil {
		return nil
	}
	out := make([]Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.fields[id].clone())
	}
	return out
}

// WithEnumValues returns a copy of r where field id becomes an enum over
// values. Empty value lists leave the field untouched.
func (r *Registry) WithEnumValues(id FieldID, values []string) (*Registry, error) {
	caps := r.List()
	for i := range caps {
		if caps[i].ID != id || len(values) == 0 {
			continue
		}
		caps[i].Type = TypeEnum
		caps[i].Values = slices.Clone(values)
	}
	return NewRegistry(caps)
}
