package sqlcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A stored row failed to decode on read. The row is left in place;
	// the caller receives a CorruptRecordError.
	CorruptRecord(key string, tag byte)

	// A cull pass began. auto is true when the probabilistic write trigger
	// fired, false for an explicit Cull call.
	CullStarted(auto bool)

	// A cull pass finished. expired and evicted are the rows deleted by the
	// expiry phase and the size-bound phase.
	CullFinished(expired, evicted int64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CorruptRecord(string, byte) {}
func (NopHooks) CullStarted(bool)           {}
func (NopHooks) CullFinished(int64, int64)  {}
