package inbound

import "time"

type VerifyRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

func (r VerifyResponse) Message() string {
	if r.Valid {
		return "Code accepted"
	}
	return "Code rejected"
}

type GenerateRequest struct {
	Secret string `json:"secret"`
	At     *int64 `json:"at,omitempty"`
}

type GenerateResponse struct {
	Code      string    `json:"code"`
	Bucket    uint64    `json:"bucket"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (HealthResponse) Message() string {
	return "Service is healthy"
}
