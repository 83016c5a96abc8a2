package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrKeyExists   = errors.New("db: key already exists")
	ErrNotIndexed  = errors.New("db: field is not indexed")
	ErrInvalidKey  = errors.New("db: invalid key or value")
)

// Op constants name the failing command for error context.
const (
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpZAdd        = "ZADD"
	OpZRem        = "ZREM"
	OpZRangeByLex = "ZRANGEBYLEX"
	OpMulti       = "MULTI"

	OpSelect  = "SELECT"
	OpInsert  = "INSERT"
	OpUpdate  = "UPDATE"
	OpDelete  = "DELETE"
	OpMigrate = "MIGRATE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
