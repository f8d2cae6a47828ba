// Package sqlcache implements a key-value cache whose durable storage is a
// single table in a relational database. Every operation maps to one atomic
// SQL statement (cull runs two phases, each its own statement), so counters,
// upserts and conditional inserts stay race-free without client-side locks.
//
// Components:
//   - Dialect: statement builder for one backend (MySQL, SQLite, Postgres).
//   - Codec: (de)serializes values <-> (payload bytes, one-character type
//     tag), compressing large payloads.
//   - Cull controller: after a write, a uniform random draw decides whether
//     to delete expired rows and trim the table below MaxEntries.
//
// Stored type tags (lower-case tags are reserved by the engine):
//
//	'i' - integer, stored as decimal text so SQL can do the arithmetic
//	'p' - serialized object
//	'z' - compressed serialized object
//
// Upper-case tags are free for codec extensions.
//
// A row whose expiry instant has passed is treated as absent by every read;
// physical deletion is deferred to the next cull pass.
package sqlcache
