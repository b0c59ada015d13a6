package event

// VerificationAuditDestination is the default topic for audit events. The
// deployed value comes from audit.topic.
const VerificationAuditDestination string = "totp.verification"

type VerificationAuditMessage struct {
	UserID        string `json:"user_id"`
	Valid         bool   `json:"valid"`
	At            int64  `json:"at"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
