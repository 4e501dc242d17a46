package audit

import (
	"context"
	"time"

	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/observability"
)

// Logger records audit events
type Logger interface {
	Log(ctx context.Context, event *Event) error
}

// Searcher reads audit events back
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]*Event, error)
}

// NopLogger discards every event
type NopLogger struct{}

// Log implements Logger
func (NopLogger) Log(context.Context, *Event) error { return nil }

// NewEvent builds an event stamped with the request id, user and tenant
// carried by ctx
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		UserID:    contextkeys.GetUserID(ctx),
		TenantID:  contextkeys.GetTenantID(ctx),
		RequestID: contextkeys.GetRequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}
}

// Record writes event and logs instead of failing when the write does not
// succeed. Audit failures never fail the operation being audited.
func Record(ctx context.Context, logger Logger, event *Event) {
	if logger == nil {
		return
	}
	if err := logger.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("event_type", string(event.EventType)).
			Warn("failed to record audit event")
	}
}

// StreamLogger writes events to the structured application log
type StreamLogger struct {
	logger *observability.Logger
}

// NewStreamLogger creates a logger that emits one log line per event
func NewStreamLogger(logger *observability.Logger) *StreamLogger {
	return &StreamLogger{logger: logger}
}

// Log implements Logger
func (l *StreamLogger) Log(_ context.Context, event *Event) error {
	fields := map[string]interface{}{
		"audit":      true,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.TenantID != "" {
		fields["tenant_id"] = event.TenantID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Plan != "" {
		fields["plan"] = event.Plan
	}
	for k, v := range event.Metadata {
		fields["meta."+k] = v
	}
	l.logger.WithFields(fields).Info(event.Message)
	return nil
}
