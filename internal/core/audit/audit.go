package audit

import (
	"context"
	"encoding/json"
	"time"
)

// ProviderCall is the audit record of one outbound call to the IAP proxy.
// Bodies and headers are stored already sanitized.
type ProviderCall struct {
	ID              int64
	CorrelationID   string
	EwaybillID      *int64 // nil for calls made outside a generation, e.g. health probes
	Provider        string
	Operation       string
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Failed reports whether the call never got a response or got a non-2xx one.
func (c ProviderCall) Failed() bool {
	return c.ErrorMessage != "" || c.ResponseStatus == nil || *c.ResponseStatus >= 300
}

// Repository persists and reads provider call records.
type Repository interface {
	Save(ctx context.Context, call ProviderCall) error

	// FindByCorrelationID returns every call made while serving one inbound request.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]ProviderCall, error)

	// FindByEwaybill returns the latest calls made for an e-way bill, newest first.
	FindByEwaybill(ctx context.Context, ewaybillID int64, limit int) ([]ProviderCall, error)
}
