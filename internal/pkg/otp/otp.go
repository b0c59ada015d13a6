package otp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

var (
	// ErrInvalidSecret is returned when the secret is not valid base32.
	ErrInvalidSecret = errors.New("otp: invalid secret")
	// ErrComputation is returned for any other failure while computing a code.
	ErrComputation = errors.New("otp: failed to compute code")
	// ErrInvalidConfig is returned when the engine is built with unsupported options.
	ErrInvalidConfig = errors.New("otp: invalid engine configuration")
)

// Engine maps a secret and a counter to a fixed-width numeric code.
type Engine interface {
	// Compute returns the code for counter, left-zero-padded to Digits().
	Compute(secret string, counter uint64) (string, error)
	// Digits returns the width of generated codes.
	Digits() int
}

// HOTPConfig configures the HOTP engine.
type HOTPConfig struct {
	// Digits is the code width, 6 or 8. Zero means 6.
	Digits otp.Digits
	// Algorithm is the HMAC hash. Zero means SHA1.
	Algorithm otp.Algorithm
}

// HOTP implements Engine using RFC 4226 via pquerna/otp.
type HOTP struct {
	opts hotp.ValidateOpts
}

// NewHOTP constructs an HOTP engine.
func NewHOTP(cfg HOTPConfig) (*HOTP, error) {
	if cfg.Digits == 0 {
		cfg.Digits = otp.DigitsSix
	}
	if cfg.Digits != otp.DigitsSix && cfg.Digits != otp.DigitsEight {
		return nil, fmt.Errorf("%w: digits must be 6 or 8, got %d", ErrInvalidConfig, cfg.Digits)
	}

	switch cfg.Algorithm {
	case otp.AlgorithmSHA1, otp.AlgorithmSHA256, otp.AlgorithmSHA512:
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %s", ErrInvalidConfig, cfg.Algorithm)
	}

	return &HOTP{
		opts: hotp.ValidateOpts{
			Digits:    cfg.Digits,
			Algorithm: cfg.Algorithm,
		},
	}, nil
}

// Compute returns the HOTP code for the base32 secret and counter.
func (h *HOTP) Compute(secret string, counter uint64) (string, error) {
	code, err := hotp.GenerateCodeCustom(secret, counter, h.opts)
	if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
		return "", ErrInvalidSecret
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrComputation, err)
	}

	return code, nil
}

// Digits returns the configured code width.
func (h *HOTP) Digits() int {
	return h.opts.Digits.Length()
}

// ParseDigits maps a configured width to otp.Digits.
func ParseDigits(n int) (otp.Digits, error) {
	switch n {
	case 0, 6:
		return otp.DigitsSix, nil
	case 8:
		return otp.DigitsEight, nil
	default:
		return 0, fmt.Errorf("%w: digits must be 6 or 8, got %d", ErrInvalidConfig, n)
	}
}

// ParseAlgorithm maps a configured algorithm name to otp.Algorithm.
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidConfig, name)
	}
}
