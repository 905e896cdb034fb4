package testutil

import (
	"context"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

// MockEwaybillService is a mock implementation of the e-way bill service for testing.
type MockEwaybillService struct {
	GetFunc      func(ctx context.Context, id int64) (*ewaybill.Ewaybill, error)
	ContentFunc  func(ctx context.Context, id int64) (string, ewaybill.Payload, error)
	GenerateFunc func(ctx context.Context, id int64) (*ewaybill.Ewaybill, error)
}

// Get calls the mock function if set, otherwise returns ErrNotFound.
func (m *MockEwaybillService) Get(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, ewaybill.ErrNotFound
}

// Content calls the mock function if set, otherwise returns ErrNotFound.
func (m *MockEwaybillService) Content(ctx context.Context, id int64) (string, ewaybill.Payload, error) {
	if m.ContentFunc != nil {
		return m.ContentFunc(ctx, id)
	}
	return "", nil, ewaybill.ErrNotFound
}

// Generate calls the mock function if set, otherwise returns ErrNotFound.
func (m *MockEwaybillService) Generate(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, id)
	}
	return nil, ewaybill.ErrNotFound
}
