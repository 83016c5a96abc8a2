package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/nearlot/internal/db"
)

// memberSep joins an indexed value and the record ID in a sorted set member.
// It sorts before every other byte, so members order by value, then ID.
const memberSep = "\x00"

// Insert stores a new record and its index entries.
func (s *Store) Insert(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if err := validateRecord(schema, rec); err != nil {
		return err
	}

	key := s.recordKey(schema.Collection, rec.ID)
	n, err := s.do(ctx, s.b().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpExists, Err: err}
	}
	if n > 0 {
		return fmt.Errorf("insert %s: %w", key, db.ErrKeyExists)
	}

	cmds := []rueidis.Completed{s.b().Multi().Build(), s.hset(key, rec.Fields)}
	for _, field := range schema.Indexed {
		if v, ok := rec.Fields[field]; ok {
			cmds = append(cmds, s.zadd(schema.Collection, field, v, rec.ID))
		}
	}
	cmds = append(cmds, s.b().Exec().Build())

	return s.exec(ctx, cmds)
}

// Update replaces a record's fields. Index entries of changed or removed
// fields are moved in the same transaction.
func (s *Store) Update(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if err := validateRecord(schema, rec); err != nil {
		return err
	}

	key := s.recordKey(schema.Collection, rec.ID)
	old, err := s.hgetall(ctx, key)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return fmt.Errorf("update %s: %w", key, db.ErrKeyNotFound)
	}

	cmds := []rueidis.Completed{
		s.b().Multi().Build(),
		s.b().Del().Key(key).Build(),
		s.hset(key, rec.Fields),
	}
	for _, field := range schema.Indexed {
		oldV, hadOld := old[field]
		newV, hasNew := rec.Fields[field]
		if hadOld == hasNew && oldV == newV {
			continue
		}
		if hadOld {
			cmds = append(cmds, s.zrem(schema.Collection, field, oldV, rec.ID))
		}
		if hasNew {
			cmds = append(cmds, s.zadd(schema.Collection, field, newV, rec.ID))
		}
	}
	cmds = append(cmds, s.b().Exec().Build())

	return s.exec(ctx, cmds)
}

// Delete removes a record and its index entries.
func (s *Store) Delete(ctx context.Context, schema *db.Schema, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	key := s.recordKey(schema.Collection, id)
	old, err := s.hgetall(ctx, key)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return fmt.Errorf("delete %s: %w", key, db.ErrKeyNotFound)
	}

	cmds := []rueidis.Completed{s.b().Multi().Build(), s.b().Del().Key(key).Build()}
	for _, field := range schema.Indexed {
		if v, ok := old[field]; ok {
			cmds = append(cmds, s.zrem(schema.Collection, field, v, id))
		}
	}
	cmds = append(cmds, s.b().Exec().Build())

	return s.exec(ctx, cmds)
}

// Get returns one record by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (db.Record, error) {
	if err := validateID(id); err != nil {
		return db.Record{}, err
	}
	key := s.recordKey(collection, id)
	fields, err := s.hgetall(ctx, key)
	if err != nil {
		return db.Record{}, err
	}
	if len(fields) == 0 {
		return db.Record{}, fmt.Errorf("get %s: %w", key, db.ErrKeyNotFound)
	}
	return db.Record{ID: id, Fields: fields}, nil
}

// RangeScan returns records whose indexed field lies in [q.Lower, q.Upper).
// An empty Upper leaves the range open.
func (s *Store) RangeScan(ctx context.Context, q *db.RangeQuery) ([]db.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrInvalidKey, err)
	}
	upper := "+"
	if q.Upper != "" {
		upper = "(" + q.Upper
	}
	return s.scanLex(ctx, q.Collection, q.Field, "["+q.Lower, upper)
}

// FindBy returns records whose indexed field equals value, ordered by ID.
func (s *Store) FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error) {
	if strings.Contains(value, memberSep) {
		return nil, fmt.Errorf("%w: value contains NUL", db.ErrInvalidKey)
	}
	return s.scanLex(ctx, collection, field, "["+value+memberSep, "("+value+"\x01")
}

func (s *Store) scanLex(ctx context.Context, collection, field, lower, upper string) ([]db.Record, error) {
	cmd := s.b().Zrangebylex().Key(s.indexKey(collection, field)).Min(lower).Max(upper).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByLex, Err: err}
	}
	if len(members) == 0 {
		return []db.Record{}, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		_, id, ok := strings.Cut(m, memberSep)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(collection, id)
	}
	hashes, err := s.hgetallMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]db.Record, 0, len(ids))
	for i, fields := range hashes {
		// Index entry outlived its record; skip it.
		if len(fields) == 0 {
			continue
		}
		out = append(out, db.Record{ID: ids[i], Fields: fields})
	}
	return out, nil
}

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

func (s *Store) zadd(collection, field, value, id string) rueidis.Completed {
	return s.b().Zadd().Key(s.indexKey(collection, field)).ScoreMember().
		ScoreMember(0, value+memberSep+id).Build()
}

func (s *Store) zrem(collection, field, value, id string) rueidis.Completed {
	return s.b().Zrem().Key(s.indexKey(collection, field)).Member(value + memberSep + id).Build()
}

func (s *Store) hgetall(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// hgetallMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
func (s *Store) hgetallMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
	}
	return out, nil
}

// exec runs a MULTI ... EXEC pipeline and reports the first failure.
// Commands that fail at run time (WRONGTYPE and the like) only show up as
// elements of the EXEC reply, so that array is checked too.
func (s *Store) exec(ctx context.Context, cmds []rueidis.Completed) error {
	results := s.client.DoMulti(ctx, cmds...)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpMulti, Err: err}
		}
	}
	if len(results) == 0 {
		return nil
	}
	if replies, err := results[len(results)-1].ToArray(); err == nil {
		for i := range replies {
			if err := replies[i].Error(); err != nil {
				return &db.Error{Op: db.OpMulti, Err: fmt.Errorf("queued command %d: %w", i, err)}
			}
		}
	}
	return nil
}

func validateRecord(schema *db.Schema, rec db.Record) error {
	if err := validateID(rec.ID); err != nil {
		return err
	}
	if len(rec.Fields) == 0 {
		return fmt.Errorf("%w: record %s has no fields", db.ErrInvalidKey, rec.ID)
	}
	for _, field := range schema.Indexed {
		if strings.Contains(rec.Fields[field], memberSep) {
			return fmt.Errorf("%w: indexed field %s contains NUL", db.ErrInvalidKey, field)
		}
	}
	return nil
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, ":\x00") {
		return fmt.Errorf("%w: record ID %q", db.ErrInvalidKey, id)
	}
	return nil
}
