package inbound

import (
	"context"

	"github.com/shandysiswandi/totpguard/internal/pkg/router"
	"github.com/shandysiswandi/totpguard/internal/verification/usecase"
)

type uc interface {
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
	Generate(ctx context.Context, in usecase.GenerateInput) (*usecase.GenerateOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/health", end.Health)

	r.POST("/api/v1/totp/verify", end.Verify)
	r.POST("/api/v1/totp/generate", end.Generate)
}
