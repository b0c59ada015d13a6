package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
)

type GenerateInput struct {
	Secret string `validate:"required,base32secret"`
	// At is a unix timestamp in seconds. Nil means now.
	At *int64 `validate:"omitempty,min=0"`
}

type GenerateOutput struct {
	Code      string
	Bucket    uint64
	ExpiresAt time.Time
}

func (s *Usecase) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()

	if !s.cfg.GetBool("totp.expose_generate") {
		return nil, goerror.NewBusiness("endpoint not found", goerror.CodeNotFound)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	at := s.clock.Now()
	if in.At != nil {
		at = time.Unix(*in.At, 0).UTC()
	}

	code, err := s.verifier.GenerateAt(normalizeSecret(in.Secret), at)
	if errors.Is(err, otp.ErrInvalidSecret) {
		return nil, goerror.NewInvalidInput(nil, "secret", "Secret must be a base32 encoded secret")
	}
	if errors.Is(err, totp.ErrInvalidArgument) {
		return nil, goerror.NewInvalidInput(err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &GenerateOutput{
		Code:      code,
		Bucket:    s.verifier.BucketAt(at),
		ExpiresAt: s.verifier.ExpiresAt(at),
	}, nil
}
