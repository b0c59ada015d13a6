package totp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
)

var (
	// ErrInvalidConfiguration is returned by NewVerifier for unusable parameters.
	ErrInvalidConfiguration = errors.New("totp: invalid configuration")
	// ErrInvalidArgument is returned when an operation receives an empty
	// secret or code, or a time before the Unix epoch.
	ErrInvalidArgument = errors.New("totp: invalid argument")
)

// CodeProvider generates and checks one-time codes.
type CodeProvider interface {
	Generate(secret string) (string, error)
	GenerateAt(secret string, at time.Time) (string, error)
	CheckCode(ctx context.Context, secret, code, userID string) (bool, error)
}

// Verifier is a time-based CodeProvider. It holds no mutable state and is
// safe for concurrent use; replay state lives in the guard.
type Verifier struct {
	guard    replay.Guard
	engine   otp.Engine
	clock    clock.Clocker
	interval uint64
	back     uint
	forward  uint
}

var _ CodeProvider = (*Verifier)(nil)

// NewVerifier builds a Verifier. Nothing is defaulted silently: a nil
// guard, engine or clock and a zero interval are all rejected.
func NewVerifier(guard replay.Guard, engine otp.Engine, opts ...Option) (*Verifier, error) {
	v := &Verifier{
		guard:    guard,
		engine:   engine,
		clock:    clock.New(),
		interval: DefaultInterval,
		back:     DefaultCheckBack,
		forward:  DefaultCheckForward,
	}
	for _, opt := range opts {
		opt(v)
	}

	switch {
	case v.guard == nil:
		return nil, fmt.Errorf("%w: replay guard is required", ErrInvalidConfiguration)
	case v.engine == nil:
		return nil, fmt.Errorf("%w: code engine is required", ErrInvalidConfiguration)
	case v.clock == nil:
		return nil, fmt.Errorf("%w: clock is required", ErrInvalidConfiguration)
	case v.interval == 0:
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfiguration)
	case v.interval > maxInterval:
		return nil, fmt.Errorf("%w: interval must not exceed %d seconds", ErrInvalidConfiguration, maxInterval)
	case v.back > maxWindow || v.forward > maxWindow:
		return nil, fmt.Errorf("%w: window must not exceed %d buckets per side", ErrInvalidConfiguration, maxWindow)
	}

	return v, nil
}

// Generate returns the code for the current bucket.
func (v *Verifier) Generate(secret string) (string, error) {
	return v.GenerateAt(secret, v.clock.Now())
}

// GenerateAt returns the code for the bucket containing at. Engine errors are
// returned as is so callers can match otp.ErrInvalidSecret and
// otp.ErrComputation.
func (v *Verifier) GenerateAt(secret string, at time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: secret is empty", ErrInvalidArgument)
	}
	sec := at.Unix()
	if sec < 0 {
		return "", fmt.Errorf("%w: time is before the unix epoch", ErrInvalidArgument)
	}

	return v.engine.Compute(secret, Bucket(uint64(sec), v.interval))
}

// CheckCode reports whether code is valid for secret within the window
// around now and has not been accepted for userID before. The only error is
// ErrInvalidArgument; every other failure is a plain false.
func (v *Verifier) CheckCode(ctx context.Context, secret, code, userID string) (bool, error) {
	if secret == "" || code == "" {
		return false, fmt.Errorf("%w: secret and code are required", ErrInvalidArgument)
	}

	anchor := v.clock.Now().Unix()
	step := int64(v.interval)

	for i := -int64(v.back); i <= int64(v.forward); i++ {
		shifted := anchor + step*i
		if shifted < 0 {
			continue
		}

		bucket := Bucket(uint64(shifted), v.interval)
		expected, err := v.engine.Compute(secret, bucket)
		if err != nil {
			slog.DebugContext(ctx, "code engine failed, rejecting verification", "error", err)
			return false, nil
		}
		if !equalCode(expected, code) {
			continue
		}

		fresh, err := v.guard.Use(ctx, bucket, code, userID)
		if err != nil {
			slog.WarnContext(ctx, "replay guard failed, rejecting bucket", "bucket", bucket, "error", err)
			continue
		}
		if fresh {
			return true, nil
		}
	}

	return false, nil
}

// Interval returns the bucket length in seconds.
func (v *Verifier) Interval() uint64 {
	return v.interval
}

// Window returns the number of buckets searched before and after the anchor.
func (v *Verifier) Window() (back, forward uint) {
	return v.back, v.forward
}

// Digits returns the engine's code width.
func (v *Verifier) Digits() int {
	return v.engine.Digits()
}

// BucketAt returns the bucket containing t, or 0 for times before the epoch.
func (v *Verifier) BucketAt(t time.Time) uint64 {
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return Bucket(uint64(sec), v.interval)
}

// ExpiresAt returns the first instant after the bucket containing t.
func (v *Verifier) ExpiresAt(t time.Time) time.Time {
	return BucketStart(v.BucketAt(t)+1, v.interval)
}

// Retention is how long a used-code record must be kept to still block a
// replay anywhere in the window, with one bucket of slack on each side.
func (v *Verifier) Retention() time.Duration {
	return Retention(v.interval, v.back, v.forward)
}

// Retention is Verifier.Retention for a configuration that has not been
// built yet, so a TTL-based guard can be sized before the verifier exists.
func Retention(interval uint64, back, forward uint) time.Duration {
	buckets := uint64(back) + uint64(forward) + 2
	return time.Duration(buckets*interval) * time.Second
}

// PruneHorizon returns the lowest bucket a verifier can still reach from
// now, keeping one bucket of slack below the window to match Retention.
// Records below it can be dropped.
func (v *Verifier) PruneHorizon() uint64 {
	current := v.BucketAt(v.clock.Now())
	reach := uint64(v.back) + 1
	if current < reach {
		return 0
	}
	return current - reach
}
