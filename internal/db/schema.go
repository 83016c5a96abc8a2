package db

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Schema names a collection and the fields kept in ordered secondary indexes.
type Schema struct {
	Collection string
	Indexed    []string
}

// IsIndexed reports whether field has a secondary index.
func (s *Schema) IsIndexed(field string) bool {
	return slices.Contains(s.Indexed, field)
}

// Validate checks the collection and index names.
func (s *Schema) Validate() error {
	if s.Collection == "" {
		return errors.New("collection name is required")
	}
	if strings.ContainsAny(s.Collection, ":\x00") {
		return fmt.Errorf("collection %q contains a reserved character", s.Collection)
	}
	seen := make(map[string]bool, len(s.Indexed))
	for _, f := range s.Indexed {
		if f == "" {
			return errors.New("indexed field name is required")
		}
		if strings.ContainsAny(f, ":\x00") {
			return fmt.Errorf("indexed field %q contains a reserved character", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate indexed field %q", f)
		}
		seen[f] = true
	}
	return nil
}

// RangeQuery selects records whose indexed Field lies in [Lower, Upper),
// compared bytewise. Results are ordered by the field value, then ID.
type RangeQuery struct {
	Collection string
	Field      string
	Lower      string
	Upper      string
}

// Validate checks that the query is well-formed.
func (q *RangeQuery) Validate() error {
	if q.Collection == "" || q.Field == "" {
		return errors.New("collection and field are required")
	}
	if q.Upper != "" && q.Upper < q.Lower {
		return fmt.Errorf("range upper %q sorts before lower %q", q.Upper, q.Lower)
	}
	return nil
}

// SchemaBuilder is a fluent builder for collection schemas.
type SchemaBuilder struct {
	s Schema
}

// NewSchema starts building a schema for collection.
func NewSchema(collection string) *SchemaBuilder {
	return &SchemaBuilder{s: Schema{Collection: collection}}
}

// Index adds secondary indexes on the given fields.
func (b *SchemaBuilder) Index(fields ...string) *SchemaBuilder {
	b.s.Indexed = append(b.s.Indexed, fields...)
	return b
}

// Build validates and returns the schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	if err := b.s.Validate(); err != nil {
		return nil, err
	}
	s := b.s
	s.Indexed = slices.Clone(b.s.Indexed)
	return &s, nil
}

// MustBuild calls Build and panics on error.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
