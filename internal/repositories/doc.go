// Package repositories implements SQLite persistence for session state.
//
// [KVRepository] stores string values under string keys in the kv table created by the embedded migrations.
// Multi-key writes and deletes run in a single transaction so a token is never half-written or half-cleared.
package repositories
