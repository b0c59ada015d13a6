package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
	"github.com/shandysiswandi/totpguard/internal/verification/entity"
)

type VerifyInput struct {
	Secret string `validate:"required,base32secret"`
	Code   string `validate:"required,max=16"`
	UserID string `validate:"required,max=255"`
}

type VerifyOutput struct {
	Valid bool
}

func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	in.UserID = strings.TrimSpace(in.UserID)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	// A malformed code is rejected exactly like a wrong one.
	var valid bool
	if wellFormedCode(in.Code, s.verifier.Digits()) {
		var err error
		valid, err = s.verifier.CheckCode(ctx, normalizeSecret(in.Secret), in.Code, in.UserID)
		if errors.Is(err, totp.ErrInvalidArgument) {
			return nil, goerror.NewInvalidInput(err)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to check code", "user_id", in.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	outcome := entity.NewOutcome(valid)
	s.record(ctx, outcome)

	if outcome.Valid() {
		slog.InfoContext(ctx, "totp code accepted", "user_id", in.UserID)
	} else {
		slog.WarnContext(ctx, "totp code rejected", "user_id", in.UserID)
	}

	s.audit(ctx, VerificationAuditEvent{
		UserID:        in.UserID,
		Valid:         outcome.Valid(),
		At:            s.clock.Now(),
		CorrelationID: instrument.GetCorrelationID(ctx),
	})

	return &VerifyOutput{Valid: outcome.Valid()}, nil
}

func wellFormedCode(code string, digits int) bool {
	return len(code) == digits && lo.EveryBy([]byte(code), func(c byte) bool { return c >= '0' && c <= '9' })
}

func (s *Usecase) record(ctx context.Context, outcome entity.Outcome) {
	counter := s.rejected
	if outcome.Valid() {
		counter = s.accepted
	}
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

// audit publishes in the background so a slow broker never delays the
// response. Failures are logged and dropped.
func (s *Usecase) audit(ctx context.Context, ev VerificationAuditEvent) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishVerificationAudit(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish verification audit", "user_id", ev.UserID, "error", err)
		}
		return nil
	})
}
