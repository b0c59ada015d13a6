// Package totp verifies time-based one-time passwords.
//
// A Verifier searches a small window of time buckets around a single anchor
// instant, compares each expected code with the candidate in constant time,
// and consumes the matching (bucket, code, user) triple through a replay
// guard so a code can be accepted at most once.
package totp
