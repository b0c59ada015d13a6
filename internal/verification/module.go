package verification

import (
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/router"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
	"github.com/shandysiswandi/totpguard/internal/verification/inbound"
	"github.com/shandysiswandi/totpguard/internal/verification/outbound/mq"
	"github.com/shandysiswandi/totpguard/internal/verification/usecase"
)

type Dependency struct {
	Verifier   *totp.Verifier             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument, dep.Config.GetString("audit.topic"))

	uc := usecase.New(usecase.Dependency{
		Verifier:      dep.Verifier,
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
