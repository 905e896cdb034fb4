package context

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// EwaybillIDKey is the context key for the e-way bill being processed.
	EwaybillIDKey contextKey = "ewaybill_id"
)

// WithCorrelationID adds a correlation ID to the context.
// The correlation ID ties an inbound request to every IAP call it triggers.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from the context.
// Returns an empty string if no correlation ID is present.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEwaybillID marks the context as working on the given e-way bill.
func WithEwaybillID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, EwaybillIDKey, id)
}

// GetEwaybillID returns the e-way bill the context works on, if any.
func GetEwaybillID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(EwaybillIDKey).(int64)
	return id, ok
}
