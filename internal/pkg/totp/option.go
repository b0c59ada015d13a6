package totp

import "github.com/shandysiswandi/totpguard/internal/pkg/clock"

const (
	// DefaultInterval is the bucket length used by common authenticator apps.
	DefaultInterval uint64 = 30
	// DefaultCheckBack is how many buckets before the anchor are searched.
	DefaultCheckBack uint = 5
	// DefaultCheckForward is how many buckets after the anchor are searched.
	DefaultCheckForward uint = 5

	maxInterval uint64 = 1 << 20
	maxWindow   uint   = 64
)

// Option customizes a Verifier.
type Option func(*Verifier)

// WithInterval sets the bucket length in seconds.
func WithInterval(seconds uint64) Option {
	return func(v *Verifier) {
		v.interval = seconds
	}
}

// WithIntervalSeconds is WithInterval for signed config values. Values
// below 1 make construction fail.
func WithIntervalSeconds(seconds int) Option {
	return func(v *Verifier) {
		if seconds <= 0 {
			v.interval = 0
			return
		}
		v.interval = uint64(seconds)
	}
}

// WithWindow sets how many buckets are searched on each side of the anchor.
func WithWindow(back, forward uint) Option {
	return func(v *Verifier) {
		v.back = back
		v.forward = forward
	}
}

// WithClock replaces the time source used for the anchor.
func WithClock(c clock.Clocker) Option {
	return func(v *Verifier) {
		v.clock = c
	}
}
