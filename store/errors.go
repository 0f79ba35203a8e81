package store

import (
	"fmt"

	"github.com/ndouglas/longtable/value"
)

// StaleEntityError is returned whenever a non-query access names an
// EntityID that is not live in the World being accessed (spec.md §3, §7).
type StaleEntityError struct {
	Entity value.EntityID
}

func (e StaleEntityError) Error() string {
	return fmt.Sprintf("stale entity: %s", e.Entity)
}

// ComponentNotFoundError mirrors the teacher's ComponentNotFoundError,
// generalized from "entity" to "(entity, component)".
type ComponentNotFoundError struct {
	Entity    value.EntityID
	Component value.Symbol
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component not found: entity %s has no %v", e.Entity, e.Component)
}

// SchemaViolationError is raised when a value fails to type-check against
// a registered ComponentSchema's field spec.
type SchemaViolationError struct {
	Component value.Symbol
	Field     value.Symbol
	Expected  FieldType
	Actual    value.Kind
}

func (e SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %v.%v expected %v, got %v", e.Component, e.Field, e.Expected, e.Actual)
}

// DuplicateSchemaError is raised when register_schema names a schema that
// already exists.
type DuplicateSchemaError struct {
	Name value.Symbol
}

func (e DuplicateSchemaError) Error() string {
	return fmt.Sprintf("duplicate schema: %v", e.Name)
}

// ReservedNamespaceError is raised when a user declaration names a
// component or relationship in a reserved namespace (spec.md §3); field
// names are not checked.
type ReservedNamespaceError struct {
	Namespace string
}

func (e ReservedNamespaceError) Error() string {
	return fmt.Sprintf("reserved namespace: %q", e.Namespace)
}

// ConstraintViolationError is raised by the relationship store when a
// cardinality constraint with on-violation=error is broken (spec.md §4.5).
type ConstraintViolationError struct {
	Relationship value.Symbol
	Source       value.EntityID
	Target       value.EntityID
	Message      string
}

func (e ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation on %v (%s -> %s): %s", e.Relationship, e.Source, e.Target, e.Message)
}
