package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the transport audit events leave through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter wraps audit events in a stable envelope and publishes them.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *int64       `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// NewAuditEmitter constructs an AuditEmitter.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// WSEventPayload describes a websocket lifecycle event.
type WSEventPayload struct {
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	IP         string `json:"ip"`
	TraceID    string `json:"trace_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

// WSEventEnvelope wraps a websocket lifecycle event for the broker.
type WSEventEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	RequestID     string         `json:"request_id"`
	Payload       WSEventPayload `json:"payload"`
}

// Emit publishes one audit event; failures are logged, never propagated.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *int64) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level: level,
			Text:  text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}

// EmitWS publishes one websocket lifecycle event; failures are logged, never
// propagated.
func (e *AuditEmitter) EmitWS(ctx context.Context, requestID string, payload WSEventPayload) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := WSEventEnvelope{
		SchemaVersion: 1,
		EventType:     "ws_event",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey+".ws", envelope); err != nil {
		log.Printf("ws event publish failed: %v", err)
	}
}
