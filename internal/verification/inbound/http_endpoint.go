package inbound

import (
	"github.com/shandysiswandi/totpguard/internal/pkg/router"
	"github.com/shandysiswandi/totpguard/internal/verification/usecase"
)

// HTTPEndpoint exposes the verification workflows over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// Health reports liveness.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} router.successResponse{data=HealthResponse}
// @Router /health [get]
func (h *HTTPEndpoint) Health(*router.Request) (any, error) {
	return HealthResponse{Status: "ok"}, nil
}

// Verify checks a code for a user and claims it so it cannot be replayed.
// @Summary Verify a TOTP code
// @Description Accepts codes from the surrounding time buckets. A code accepted once for a user is rejected afterwards.
// @Tags TOTP
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse}
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/totp/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Secret: req.Secret,
		Code:   req.Code,
		UserID: req.UserID,
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{Valid: resp.Valid}, nil
}

// Generate returns the code for now or for a given unix time. It answers 404
// unless totp.expose_generate is on.
// @Summary Generate a TOTP code
// @Tags TOTP
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generation payload"
// @Success 200 {object} router.successResponse{data=GenerateResponse}
// @Failure 404 {object} router.errorResponse "Generation disabled"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/totp/generate [post]
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Generate(r.Context(), usecase.GenerateInput{
		Secret: req.Secret,
		At:     req.At,
	})
	if err != nil {
		return nil, err
	}

	return GenerateResponse{
		Code:      resp.Code,
		Bucket:    resp.Bucket,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}
