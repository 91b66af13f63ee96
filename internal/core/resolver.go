package core

import "strings"

// ResolveRule maps an object-name marker to an entity.
type ResolveRule struct {
	Marker string // matched case-insensitively as a substring
	Entity string
	Table  string // permanent staging table
}

// DefaultRules is checked in order; payments wins over orders when both appear.
var DefaultRules = []ResolveRule{
	{Marker: "payments", Entity: "payments", Table: "stg_payments"},
	{Marker: "orders", Entity: "orders", Table: "stg_orders"},
}

// Resolution is either a resolved entity or "no match".
type Resolution struct {
	Entity string
	Table  string
	ok     bool
}

// Resolved reports whether an entity matched.
func (r Resolution) Resolved() bool { return r.ok }

// Unresolved is the zero Resolution.
var Unresolved = Resolution{}

// Resolver picks the entity for an object name from an ordered rule list.
type Resolver struct {
	rules []ResolveRule
}

// NewResolver returns a resolver over rules. Rules with empty markers are ignored.
func NewResolver(rules []ResolveRule) *Resolver {
	kept := make([]ResolveRule, 0, len(rules))
	for _, r := range rules {
		if r.Marker == "" {
			continue
		}
		r.Marker = strings.ToLower(r.Marker)
		kept = append(kept, r)
	}
	return &Resolver{rules: kept}
}

// Resolve returns the first rule whose marker appears in objectName.
func (r *Resolver) Resolve(objectName string) Resolution {
	name := strings.ToLower(objectName)
	for _, rule := range r.rules {
		if strings.Contains(name, rule.Marker) {
			return Resolution{Entity: rule.Entity, Table: rule.Table, ok: true}
		}
	}
	return Unresolved
}

var defaultResolver = NewResolver(DefaultRules)

// Resolve resolves objectName against DefaultRules.
func Resolve(objectName string) Resolution {
	return defaultResolver.Resolve(objectName)
}
