package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	RecordStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Record is a flat string-field record addressed by collection and ID.
type Record struct {
	ID     string
	Fields map[string]string
}

// RecordWriter mutates records and keeps the schema's secondary indexes in step.
type RecordWriter interface {
	Insert(ctx context.Context, schema *Schema, rec Record) error
	Update(ctx context.Context, schema *Schema, rec Record) error
	Delete(ctx context.Context, schema *Schema, id string) error
}

// RecordReader reads records by ID or through an indexed field.
type RecordReader interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	RangeScanner
	FindBy(ctx context.Context, collection, field, value string) ([]Record, error)
}

// RangeScanner scans one indexed field over a half-open value range.
type RangeScanner interface {
	RangeScan(ctx context.Context, q *RangeQuery) ([]Record, error)
}

// RecordStore is a store with ordered secondary indexes.
type RecordStore interface {
	RecordWriter
	RecordReader
}
