package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/totpguard/internal/verification"
)

func (a *App) initModules() {
	if err := verification.New(verification.Dependency{
		Verifier:   a.verifier,
		Messaging:  a.messaging,
		Router:     a.router,
		Goroutine:  a.goroutine,
		Config:     a.config,
		Instrument: a.ins,
		Clock:      a.clock,
		Validator:  a.validator,
	}); err != nil {
		slog.Error("failed to init module verification", "error", err)
		os.Exit(1)
	}
}
