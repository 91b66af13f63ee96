package core

import (
	"fmt"
	"sort"
	"sync"
)

// EntityDefinition contains everything needed to stage one entity.
type EntityDefinition struct {
	Name       string         // Canonical entity name: "payments"
	Table      string         // Permanent staging table: "stg_payments"
	DateColumn string         // Rows with a null value here are never appended
	Fields     []FieldSpec    // Raw CSV schema, in file column order
	Output     []OutputColumn // Permanent table columns, in insert order
}

// Field returns the named raw field.
func (d EntityDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// PermanentSchema returns the column schema of the permanent staging table.
// Every permanent column is nullable; appends filter on DateColumn instead.
func (d EntityDefinition) PermanentSchema() []FieldSpec {
	schema := make([]FieldSpec, len(d.Output))
	for i, col := range d.Output {
		schema[i] = FieldSpec{Name: col.Name, Type: col.Type}
	}
	return schema
}

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the entity is already registered or the definition is inconsistent.
func Register(def EntityDefinition) {
	if err := def.validate(); err != nil {
		panic(fmt.Sprintf("invalid entity definition %q: %v", def.Name, err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Name))
	}

	registry[def.Name] = def
}

func (d EntityDefinition) validate() error {
	if d.Name == "" || d.Table == "" {
		return fmt.Errorf("name and table are required")
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	date, ok := d.Field(d.DateColumn)
	if !ok {
		return fmt.Errorf("date column %q is not a field", d.DateColumn)
	}
	if date.Type != FieldDate {
		return fmt.Errorf("date column %q has type %s", d.DateColumn, date.Type)
	}
	for _, col := range d.Output {
		if col.Kind == ExprLoadTimestamp {
			continue
		}
		if _, ok := d.Field(col.Source); !ok {
			return fmt.Errorf("output column %q reads unknown field %q", col.Name, col.Source)
		}
	}
	return nil
}

// Get returns an entity definition by name.
// Returns false if not found.
func Get(name string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// SchemaFor returns the raw column schema of an entity.
// An unknown name means the resolver and registry disagree, which is a bug.
func SchemaFor(entity string) ([]FieldSpec, error) {
	def, ok := Get(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return def.Fields, nil
}

// All returns all registered entity definitions sorted by name.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Names returns the registered entity names, sorted.
func Names() []string {
	defs := All()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}
