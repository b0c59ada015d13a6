// Package replay records which one-time codes have already been accepted.
//
// A record is the triple (time bucket, code, user). Guards must make Use an
// atomic check-and-set so that two concurrent verifications of the same code
// cannot both succeed. Memory and Postgres guards need a Janitor to evict old
// buckets; the Redis guard relies on key expiry.
package replay
