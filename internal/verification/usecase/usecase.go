package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type VerificationAuditEvent struct {
	UserID        string
	Valid         bool
	At            time.Time
	CorrelationID string
}

type repoMessaging interface {
	PublishVerificationAudit(ctx context.Context, msg VerificationAuditEvent) error
}

type verifier interface {
	CheckCode(ctx context.Context, secret, code, userID string) (bool, error)
	Digits() int
	GenerateAt(secret string, at time.Time) (string, error)
	BucketAt(t time.Time) uint64
	ExpiresAt(t time.Time) time.Time
}

type Usecase struct {
	verifier      verifier
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	accepted metric.Int64Counter
	rejected metric.Int64Counter
}

type Dependency struct {
	Verifier      verifier
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	uc := &Usecase{
		verifier:      dep.Verifier,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}

	meter := dep.Instrument.Meter("verification.usecase")

	var err error
	uc.accepted, err = meter.Int64Counter("totp.verify.accepted", metric.WithDescription("Codes accepted by the verifier"))
	if err != nil {
		slog.Error("failed to create accepted counter", "error", err)
	}
	uc.rejected, err = meter.Int64Counter("totp.verify.rejected", metric.WithDescription("Codes rejected by the verifier"))
	if err != nil {
		slog.Error("failed to create rejected counter", "error", err)
	}

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

// normalizeSecret accepts the grouped, lower-case form authenticator apps
// display ("jbsw y3dp ...").
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}
