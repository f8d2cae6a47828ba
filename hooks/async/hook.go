// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/babbageclunk/sqlcache"
//	"github.com/babbageclunk/sqlcache/hooks/async"
//	"github.com/babbageclunk/sqlcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CorruptEvery: 10, // sample logs: ~every 10th corrupt record
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := sqlcache.New(sqlcache.Options{
//	    DB:      db,
//	    Table:   "cache_entries",
//	    Dialect: sqlite.New(),
//	    Hooks:   hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"

	"github.com/babbageclunk/sqlcache"
)

type Hooks struct {
	inner sqlcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ sqlcache.Hooks = (*Hooks)(nil)

func New(inner sqlcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) CorruptRecord(k string, tag byte) { h.try(func() { h.inner.CorruptRecord(k, tag) }) }
func (h *Hooks) CullStarted(auto bool)            { h.try(func() { h.inner.CullStarted(auto) }) }
func (h *Hooks) CullFinished(expired, evicted int64) {
	h.try(func() { h.inner.CullFinished(expired, evicted) })
}
