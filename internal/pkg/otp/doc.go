// Package otp provides the HMAC-based one-time password engine used to
// derive numeric codes from a shared secret and a counter.
//
// The engine is a thin, deterministic wrapper around pquerna/otp. It knows
// nothing about time; callers (such as the totp verifier) turn wall-clock time
// into a counter before asking the engine for a code.
package otp
