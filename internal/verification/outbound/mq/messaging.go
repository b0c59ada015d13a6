package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
	"github.com/shandysiswandi/totpguard/internal/verification/usecase"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client      messaging.Publisher
	ins         instrument.Instrumentation
	destination string
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, destination string) *Messaging {
	if destination == "" {
		destination = event.VerificationAuditDestination
	}
	return &Messaging{client: client, ins: ins, destination: destination}
}

func (m *Messaging) PublishVerificationAudit(ctx context.Context, msg usecase.VerificationAuditEvent) error {
	ctx, span := m.ins.Tracer("verification.outbound.mq").Start(ctx, "PublishVerificationAudit")
	defer span.End()

	body, err := json.Marshal(event.VerificationAuditMessage{
		UserID:        msg.UserID,
		Valid:         msg.Valid,
		At:            msg.At.Unix(),
		CorrelationID: msg.CorrelationID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := msg.CorrelationID
	if cID == "" {
		cID = instrument.GetCorrelationID(ctx)
	}

	if _, err := m.client.Publish(ctx, m.destination, messaging.Message{
		Body:    body,
		Key:     []byte(msg.UserID),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
