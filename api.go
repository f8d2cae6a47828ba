package sqlcache

import (
	"context"
	"database/sql"
	"time"

	c "github.com/babbageclunk/sqlcache/codec"
	d "github.com/babbageclunk/sqlcache/dialect"
)

// Cache is the full cache contract over a single relational table.
// All operations are synchronous calls against the shared *sql.DB pool;
// concurrency safety comes from the datastore's own atomic statements.
type Cache interface {
	// Single
	Get(ctx context.Context, key string) (v any, ok bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Add stores value only if no live entry exists for key. It reports
	// whether the write took effect; an existing live key is a no-op.
	Add(ctx context.Context, key string, value any, ttl time.Duration) (added bool, err error)
	Delete(ctx context.Context, key string) (deleted bool, err error)
	Has(ctx context.Context, key string) (bool, error)

	// Bulk (keys are treated as a set; result maps contain live keys only)
	GetMany(ctx context.Context, keys []string) (map[string]any, error)
	SetMany(ctx context.Context, items map[string]any, ttl time.Duration) error
	DeleteMany(ctx context.Context, keys []string) error

	// Counters. The stored value must carry the integer tag; callers that
	// want create-or-increment semantics Add(key, 0) first.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	Decr(ctx context.Context, key string, delta int64) (int64, error)

	// Maintenance
	Cull(ctx context.Context) error
	Clear(ctx context.Context) error
	EnsureTable(ctx context.Context) error
	DropTable(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options tune the cache engine.
// Only DB, Table and Dialect are required; others have sensible defaults.
type Options struct {
	// Required
	DB      *sql.DB
	Table   string // table identifier, [A-Za-z0-9_]+
	Dialect d.Dialect

	Codec  c.Codec // nil => codec.New(codec.Options{}) (msgpack + zlib)
	Logger Logger  // if nil, NopLogger is used
	Hooks  Hooks   // if nil, NopHooks is used

	// CullProbability is the chance in [0,1] that a successful write
	// triggers a cull pass. 0 => 0.01; use DisableAutoCull to turn the
	// trigger off entirely (Cull must then be invoked out-of-band).
	// 1.0 culls on every write.
	CullProbability float64
	DisableAutoCull bool

	MaxEntries    int // size bound checked by cull; 0 => 300, negative => unbounded
	CullFrequency int // 1/CullFrequency of rows removed when over MaxEntries; 0 => 3

	CloseDB bool // set true only if the cache exclusively owns the pool
}

func New(opts Options) (Cache, error) {
	return newCache(opts)
}
