package testutil

import (
	"context"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

// MockProvider is a mock implementation of ewaybill.Provider for testing.
type MockProvider struct {
	GenerateByIRNFunc  func(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error)
	GenerateDirectFunc func(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error)

	Calls int
}

// GenerateByIRN calls the mock function if set, otherwise fails as a rejection.
func (m *MockProvider) GenerateByIRN(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error) {
	m.Calls++
	if m.GenerateByIRNFunc != nil {
		return m.GenerateByIRNFunc(ctx, company, payload)
	}
	return nil, &ewaybill.Error{Kind: ewaybill.KindRemoteRejection}
}

// GenerateDirect calls the mock function if set, otherwise fails as a rejection.
func (m *MockProvider) GenerateDirect(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error) {
	m.Calls++
	if m.GenerateDirectFunc != nil {
		return m.GenerateDirectFunc(ctx, company, payload)
	}
	return nil, &ewaybill.Error{Kind: ewaybill.KindRemoteRejection}
}
