package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/babbageclunk/sqlcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CorruptEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	corruptCtr atomic.Uint64
}

var _ sqlcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CorruptRecord(key string, tag byte) {
	if h.l == nil || !sample(h.opts.CorruptEvery, &h.corruptCtr) {
		return
	}
	h.l.Warn("sqlcache.corrupt_record",
		"key", h.redact(key),
		"tag", string(tag))
}

func (h *Hooks) CullStarted(auto bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("sqlcache.cull_started",
		"auto", auto)
}

func (h *Hooks) CullFinished(expired, evicted int64) {
	if h.l == nil {
		return
	}
	h.l.Debug("sqlcache.cull_finished",
		"expired", expired,
		"evicted", evicted)
}
