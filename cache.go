package sqlcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/babbageclunk/sqlcache/codec"
	"github.com/babbageclunk/sqlcache/dialect"
)

const (
	defaultCullProbability = 0.01
	defaultMaxEntries      = 300
	defaultCullFrequency   = 3
)

var tablePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type cache struct {
	db      *sql.DB
	dialect dialect.Dialect
	table   string
	codec   codec.Codec
	log     Logger
	hooks   Hooks

	cullProbability float64
	maxEntries      int
	cullFrequency   int
	closeDB         bool

	// injected for tests
	now       func() time.Time
	randFloat func() float64

	// fixed-arity statements, built once; n-ary statements are built per call
	getSQL           string
	hasSQL           string
	setSQL           string
	addSQL           string
	deleteSQL        string
	incrSQL          string
	incrResultSQL    string
	valueTypeSQL     string
	deleteExpiredSQL string
	countSQL         string
	deleteExcessSQL  string
	clearSQL         string
}

func newCache(opts Options) (*cache, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("sqlcache: db is required")
	}
	if opts.Dialect == nil {
		return nil, fmt.Errorf("sqlcache: dialect is required")
	}
	if !tablePattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("sqlcache: invalid table name %q", opts.Table)
	}
	if opts.CullProbability < 0 || opts.CullProbability > 1 {
		return nil, fmt.Errorf("sqlcache: cull probability %v outside [0,1]", opts.CullProbability)
	}
	if opts.CullFrequency < 0 {
		return nil, fmt.Errorf("sqlcache: negative cull frequency %d", opts.CullFrequency)
	}

	cc := &cache{
		db:      opts.DB,
		dialect: opts.Dialect,
		table:   opts.Table,
		codec:   opts.Codec,
		closeDB: opts.CloseDB,

		maxEntries:    opts.MaxEntries,
		cullFrequency: coalesce(opts.CullFrequency, defaultCullFrequency),

		now:       time.Now,
		randFloat: rand.Float64,
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if cc.maxEntries == 0 {
		cc.maxEntries = defaultMaxEntries
	}
	if !opts.DisableAutoCull {
		cc.cullProbability = coalesce(opts.CullProbability, defaultCullProbability)
	}
	if cc.codec == nil {
		def, err := codec.New(codec.Options{})
		if err != nil {
			return nil, err
		}
		cc.codec = def
	}

	t := cc.table
	cc.getSQL = cc.dialect.Get(t)
	cc.hasSQL = cc.dialect.Has(t)
	cc.setSQL = cc.dialect.Set(t)
	cc.addSQL = cc.dialect.Add(t)
	cc.deleteSQL = cc.dialect.Delete(t)
	cc.incrSQL = cc.dialect.Incr(t)
	cc.incrResultSQL = cc.dialect.IncrResult()
	cc.valueTypeSQL = cc.dialect.ValueType(t)
	cc.deleteExpiredSQL = cc.dialect.DeleteExpired(t)
	cc.countSQL = cc.dialect.Count(t)
	cc.deleteExcessSQL = cc.dialect.DeleteExcess(t)
	cc.clearSQL = cc.dialect.Clear(t)

	return cc, nil
}

func (c *cache) Close(ctx context.Context) error {
	if c.closeDB {
		return c.db.Close()
	}
	return nil
}

func (c *cache) Get(ctx context.Context, key string) (any, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	var (
		payload []byte
		tag     string
	)
	err := c.db.QueryRowContext(ctx, c.getSQL, key, c.now().UnixMilli()).Scan(&payload, &tag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlcache: get %q: %w", key, err)
	}
	v, err := c.decode(key, payload, tag)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *cache) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	keys = dedupe(keys)
	out := make(map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return nil, err
		}
	}

	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, c.now().UnixMilli())

	rows, err := c.db.QueryContext(ctx, c.dialect.GetMany(c.table, len(keys)), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlcache: get many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key     string
			payload []byte
			tag     string
		)
		if err := rows.Scan(&key, &payload, &tag); err != nil {
			return nil, fmt.Errorf("sqlcache: get many: %w", err)
		}
		v, err := c.decode(key, payload, tag)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlcache: get many: %w", err)
	}
	return out, nil
}

func (c *cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	payload, tag, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	expires := absoluteExpiry(ttl, c.now())
	if _, err := c.db.ExecContext(ctx, c.setSQL, key, payload, string(tag), expires); err != nil {
		return fmt.Errorf("sqlcache: set %q: %w", key, err)
	}
	c.maybeCull(ctx)
	return nil
}

func (c *cache) SetMany(ctx context.Context, items map[string]any, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	// one now reading so every row shares the same expiry basis
	expires := absoluteExpiry(ttl, c.now())
	args := make([]any, 0, len(items)*4)
	for key, value := range items {
		if err := validateKey(key); err != nil {
			return err
		}
		payload, tag, err := c.codec.Encode(value)
		if err != nil {
			return fmt.Errorf("sqlcache: set many %q: %w", key, err)
		}
		args = append(args, key, payload, string(tag), expires)
	}
	if _, err := c.db.ExecContext(ctx, c.dialect.SetMany(c.table, len(items)), args...); err != nil {
		return fmt.Errorf("sqlcache: set many: %w", err)
	}
	c.maybeCull(ctx)
	return nil
}

func (c *cache) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	payload, tag, err := c.codec.Encode(value)
	if err != nil {
		return false, err
	}
	now := c.now()
	expires := absoluteExpiry(ttl, now)
	res, err := c.db.ExecContext(ctx, c.addSQL, key, payload, string(tag), expires, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("sqlcache: add %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlcache: add %q: %w", key, err)
	}
	if n == 0 {
		c.log.Debug("add skipped (live key exists)", Fields{"key": key})
		return false, nil
	}
	c.maybeCull(ctx)
	return true, nil
}

func (c *cache) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	res, err := c.db.ExecContext(ctx, c.deleteSQL, key)
	if err != nil {
		return false, fmt.Errorf("sqlcache: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlcache: delete %q: %w", key, err)
	}
	return n > 0, nil
}

func (c *cache) DeleteMany(ctx context.Context, keys []string) error {
	keys = dedupe(keys)
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return err
		}
		args = append(args, k)
	}
	if _, err := c.db.ExecContext(ctx, c.dialect.DeleteMany(c.table, len(keys)), args...); err != nil {
		return fmt.Errorf("sqlcache: delete many: %w", err)
	}
	return nil
}

func (c *cache) Has(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	var one int
	err := c.db.QueryRowContext(ctx, c.hasSQL, key, c.now().UnixMilli()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlcache: has %q: %w", key, err)
	}
	return true, nil
}

func (c *cache) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	now := c.now().UnixMilli()
	// a zero delta changes nothing, and dialects that report changed rows
	// (MySQL) would make the no-op update indistinguishable from a miss;
	// a plain read applies the same classification
	if delta == 0 {
		return c.readCounter(ctx, key, now)
	}
	if c.incrResultSQL == "" {
		return c.incrReturning(ctx, key, delta, now)
	}
	return c.incrReadback(ctx, key, delta, now)
}

func (c *cache) Decr(ctx context.Context, key string, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, fmt.Errorf("%w: delta %d cannot be negated", ErrCounterOverflow, delta)
	}
	return c.Incr(ctx, key, -delta)
}

// incrReturning runs the single-statement form on dialects whose UPDATE can
// report the new value directly.
func (c *cache) incrReturning(ctx context.Context, key string, delta, now int64) (int64, error) {
	var newVal int64
	err := c.db.QueryRowContext(ctx, c.incrSQL, delta, key, now).Scan(&newVal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, c.classifyCounterMiss(ctx, key, now)
	}
	if err != nil {
		if c.dialect.IsOverflow(err) {
			return 0, fmt.Errorf("%w: %q", ErrCounterOverflow, key)
		}
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	return newVal, nil
}

// incrReadback pins one pooled connection: the atomic UPDATE stores the new
// value in a connection-local variable and a follow-up read returns it. The
// update is still a single atomic statement; the readback is bookkeeping on
// the same connection.
func (c *cache) incrReadback(ctx context.Context, key string, delta, now int64) (int64, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, c.incrSQL, delta, key, now)
	if err != nil {
		if c.dialect.IsOverflow(err) {
			return 0, fmt.Errorf("%w: %q", ErrCounterOverflow, key)
		}
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	if n == 0 {
		return 0, c.classifyCounterMiss(ctx, key, now)
	}

	var newVal int64
	if err := conn.QueryRowContext(ctx, c.incrResultSQL).Scan(&newVal); err != nil {
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	return newVal, nil
}

// readCounter reads the current value of a live counter row without
// updating it, with the same miss/type classification as a real increment.
func (c *cache) readCounter(ctx context.Context, key string, now int64) (int64, error) {
	var (
		payload []byte
		tag     string
	)
	err := c.db.QueryRowContext(ctx, c.getSQL, key, now).Scan(&payload, &tag)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	if tag != string(codec.TagInt) {
		return 0, fmt.Errorf("%w: key %q has type %q", ErrNotCounter, key, tag)
	}
	v, err := c.decode(key, payload, tag)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: key %q has type %q", ErrNotCounter, key, tag)
	}
	return n, nil
}

// classifyCounterMiss distinguishes a missing/expired key from a live row
// of the wrong type after a counter update matched no rows. This probe runs
// only on the error path.
func (c *cache) classifyCounterMiss(ctx context.Context, key string, now int64) error {
	var tag string
	err := c.db.QueryRowContext(ctx, c.valueTypeSQL, key, now).Scan(&tag)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("sqlcache: incr %q: %w", key, err)
	}
	if tag != string(codec.TagInt) {
		return fmt.Errorf("%w: key %q has type %q", ErrNotCounter, key, tag)
	}
	// the row raced back into existence between statements
	return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

func (c *cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, c.clearSQL); err != nil {
		return fmt.Errorf("sqlcache: clear: %w", err)
	}
	return nil
}

func (c *cache) EnsureTable(ctx context.Context) error {
	for _, stmt := range c.dialect.CreateTable(c.table) {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlcache: create table %q: %w", c.table, err)
		}
	}
	return nil
}

func (c *cache) DropTable(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, c.dialect.DropTable(c.table)); err != nil {
		return fmt.Errorf("sqlcache: drop table %q: %w", c.table, err)
	}
	return nil
}

func (c *cache) decode(key string, payload []byte, tag string) (any, error) {
	if len(tag) != 1 {
		c.hooks.CorruptRecord(key, 0)
		return nil, &CorruptRecordError{Key: key, Err: fmt.Errorf("bad type tag %q", tag)}
	}
	v, err := c.codec.Decode(payload, tag[0])
	if err != nil {
		c.hooks.CorruptRecord(key, tag[0])
		return nil, &CorruptRecordError{Key: key, Tag: tag[0], Err: err}
	}
	return v, nil
}
