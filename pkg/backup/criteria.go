package backup

import "strings"

// Field selects which record field a predicate tests.
type Field int

const (
	DomainField Field = iota
	PathField
)

// Mode selects how a predicate compares its value against the field.
type Mode int

const (
	Exact Mode = iota
	Contains
)

// Predicate is a single search criterion. Matching is byte-exact on the
// stored value: no case folding, no path separator translation.
type Predicate struct {
	Field Field
	Mode  Mode
	Value string
}

// DomainExact matches records whose domain equals value.
func DomainExact(value string) Predicate {
	return Predicate{Field: DomainField, Mode: Exact, Value: value}
}

// DomainContains matches records whose domain contains value as a substring.
func DomainContains(value string) Predicate {
	return Predicate{Field: DomainField, Mode: Contains, Value: value}
}

// PathExact matches records whose relative path equals value.
func PathExact(value string) Predicate {
	return Predicate{Field: PathField, Mode: Exact, Value: value}
}

// PathContains matches records whose relative path contains value as a
// substring.
func PathContains(value string) Predicate {
	return Predicate{Field: PathField, Mode: Contains, Value: value}
}

// Matches reports whether r satisfies the predicate.
func (p Predicate) Matches(r *Record) bool {
	var v string
	switch p.Field {
	case DomainField:
		v = r.Domain
	case PathField:
		v = r.RelativePath
	}
	switch p.Mode {
	case Exact:
		return v == p.Value
	case Contains:
		return strings.Contains(v, p.Value)
	}
	return false
}

// Criteria combines predicates into one boolean decision per record.
//
// An empty Criteria matches every record regardless of Any: no filters
// means an unrestricted search.
type Criteria struct {
	Predicates []Predicate
	Any        bool // OR the predicates together instead of AND
}

// Matches reports whether r satisfies the criteria.
func (c Criteria) Matches(r *Record) bool {
	if len(c.Predicates) == 0 {
		return true
	}
	if c.Any {
		for _, p := range c.Predicates {
			if p.Matches(r) {
				return true
			}
		}
		return false
	}
	for _, p := range c.Predicates {
		if !p.Matches(r) {
			return false
		}
	}
	return true
}
