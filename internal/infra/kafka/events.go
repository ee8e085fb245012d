package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	// TopicPermissionsInvalidated carries cache invalidation events between service instances.
	TopicPermissionsInvalidated = "rbac.permissions.invalidated"
)

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	TenantID  string           `json:"tenant_id"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   json.RawMessage  `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

type invalidationPayload struct {
	TenantID      string                   `json:"tenant_id"`
	UserProfileID string                   `json:"user_profile_id,omitempty"`
	Scope         domain.InvalidationScope `json:"scope"`
	Reason        string                   `json:"reason"`
	ChangedBy     string                   `json:"changed_by,omitempty"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// EventPublisher implements port.EventPublisher on top of Producer.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// PublishPermissionsInvalidated publishes rbac.permissions.invalidated keyed by tenant.
func (p *EventPublisher) PublishPermissionsInvalidated(ctx context.Context, event domain.PermissionsInvalidatedEvent) error {
	if event.TenantID == "" {
		return fmt.Errorf("invalidation event requires tenant id")
	}
	if event.Scope == domain.InvalidationScopeProfile && event.UserProfileID == "" {
		return fmt.Errorf("profile invalidation event requires profile id")
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(invalidationPayload{
		TenantID:      event.TenantID,
		UserProfileID: event.UserProfileID,
		Scope:         event.Scope,
		Reason:        event.Reason,
		ChangedBy:     event.ChangedBy,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal invalidation payload: %w", err)
	}

	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   id,
		EventType: TopicPermissionsInvalidated,
		TenantID:  event.TenantID,
		Timestamp: occurredAt,
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(TopicPermissionsInvalidated),
		Key:   sarama.StringEncoder(event.TenantID),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeInvalidation parses an envelope produced by EventPublisher.
func decodeInvalidation(raw []byte) (domain.PermissionsInvalidatedEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.PermissionsInvalidatedEvent{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if envelope.EventType != TopicPermissionsInvalidated {
		return domain.PermissionsInvalidatedEvent{}, fmt.Errorf("unexpected event type %q", envelope.EventType)
	}

	var payload invalidationPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return domain.PermissionsInvalidatedEvent{}, fmt.Errorf("decode invalidation payload: %w", err)
	}

	return domain.PermissionsInvalidatedEvent{
		EventID:       envelope.EventID,
		TenantID:      payload.TenantID,
		UserProfileID: payload.UserProfileID,
		Scope:         payload.Scope,
		Reason:        payload.Reason,
		ChangedBy:     payload.ChangedBy,
		OccurredAt:    payload.OccurredAt,
	}, nil
}
