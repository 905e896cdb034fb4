package context

import (
	"context"
	"testing"
)

func TestWithCorrelationID(t *testing.T) {
	tests := []struct {
		name          string
		correlationID string
	}{
		{
			name:          "adds correlation ID to context",
			correlationID: "test-correlation-123",
		},
		{
			name:          "handles empty correlation ID",
			correlationID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctx = WithCorrelationID(ctx, tt.correlationID)

			result := GetCorrelationID(ctx)
			if result != tt.correlationID {
				t.Errorf("expected %s, got %s", tt.correlationID, result)
			}
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "returns correlation ID when present",
			ctx:      WithCorrelationID(context.Background(), "test-123"),
			expected: "test-123",
		},
		{
			name:     "returns empty string when not present",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "returns empty string for nil context value",
			ctx:      context.WithValue(context.Background(), CorrelationIDKey, nil),
			expected: "",
		},
		{
			name:     "returns empty string for wrong type",
			ctx:      context.WithValue(context.Background(), CorrelationIDKey, 123),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetCorrelationID(tt.ctx)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestCorrelationIDPropagation(t *testing.T) {
	// Test that correlation ID propagates through context chain
	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "original-id")
	ctx = WithEwaybillID(ctx, 42)

	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()

	if GetCorrelationID(ctx2) != "original-id" {
		t.Error("correlation ID should propagate to derived contexts")
	}
	if id, ok := GetEwaybillID(ctx2); !ok || id != 42 {
		t.Errorf("expected e-way bill 42 on derived context, got %d (%v)", id, ok)
	}
}

func TestGetEwaybillID(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		expectedID int64
		expectedOK bool
	}{
		{"present", WithEwaybillID(context.Background(), 7), 7, true},
		{"absent", context.Background(), 0, false},
		{"wrong type", context.WithValue(context.Background(), EwaybillIDKey, "7"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := GetEwaybillID(tt.ctx)
			if id != tt.expectedID || ok != tt.expectedOK {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.expectedID, tt.expectedOK, id, ok)
			}
		})
	}
}
