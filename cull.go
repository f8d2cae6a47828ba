package sqlcache

import (
	"context"
	"fmt"
)

// maybeCull draws a fresh uniform sample after a successful write; no state
// is carried between calls. A draw under the configured probability runs a
// full cull pass on the caller's goroutine.
func (c *cache) maybeCull(ctx context.Context) {
	if c.cullProbability <= 0 {
		return
	}
	if c.randFloat() >= c.cullProbability {
		return
	}
	if err := c.cull(ctx, true); err != nil {
		c.log.Warn("auto cull failed", Fields{"table": c.table, "err": err})
	}
}

// Cull deletes expired rows, then trims the table below MaxEntries. Safe to
// call concurrently: each phase is one atomic statement, so interleaved
// passes at worst issue redundant no-op deletes.
func (c *cache) Cull(ctx context.Context) error {
	return c.cull(ctx, false)
}

func (c *cache) cull(ctx context.Context, auto bool) error {
	c.hooks.CullStarted(auto)

	res, err := c.db.ExecContext(ctx, c.deleteExpiredSQL, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlcache: cull expired: %w", err)
	}
	expired, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlcache: cull expired: %w", err)
	}

	var evicted int64
	if c.maxEntries > 0 {
		var count int64
		if err := c.db.QueryRowContext(ctx, c.countSQL).Scan(&count); err != nil {
			return fmt.Errorf("sqlcache: cull count: %w", err)
		}
		if count > int64(c.maxEntries) {
			limit := count / int64(c.cullFrequency)
			if limit > 0 {
				res, err := c.db.ExecContext(ctx, c.deleteExcessSQL, limit)
				if err != nil {
					return fmt.Errorf("sqlcache: cull excess: %w", err)
				}
				if evicted, err = res.RowsAffected(); err != nil {
					return fmt.Errorf("sqlcache: cull excess: %w", err)
				}
			}
		}
	}

	c.hooks.CullFinished(expired, evicted)
	c.log.Debug("cull finished", Fields{
		"table":   c.table,
		"auto":    auto,
		"expired": expired,
		"evicted": evicted,
	})
	return nil
}
