package testutil

import (
	"context"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

// MockRepository is a mock implementation of ewaybill.Repository for testing.
type MockRepository struct {
	GetFunc     func(ctx context.Context, id int64) (*ewaybill.Ewaybill, error)
	CompanyFunc func(ctx context.Context, id int64) (ewaybill.Company, error)
	LockFunc    func(ctx context.Context, id int64) (ewaybill.UnitOfWork, error)
}

// Get calls the mock function if set, otherwise returns ErrNotFound.
func (m *MockRepository) Get(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, ewaybill.ErrNotFound
}

// Company calls the mock function if set, otherwise returns a bare company.
func (m *MockRepository) Company(ctx context.Context, id int64) (ewaybill.Company, error) {
	if m.CompanyFunc != nil {
		return m.CompanyFunc(ctx, id)
	}
	return ewaybill.Company{ID: id}, nil
}

// Lock calls the mock function if set, otherwise returns ErrNotFound.
func (m *MockRepository) Lock(ctx context.Context, id int64) (ewaybill.UnitOfWork, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, id)
	}
	return nil, ewaybill.ErrNotFound
}

// MockUnitOfWork records every write made through it.
type MockUnitOfWork struct {
	Doc *ewaybill.Ewaybill

	SaveSuccessFunc func(ctx context.Context, s ewaybill.Success) error
	SaveFailureFunc func(ctx context.Context, f ewaybill.Failure) error
	CommitFunc      func(ctx context.Context) error
	RollbackFunc    func(ctx context.Context) error

	Successes   []ewaybill.Success
	Failures    []ewaybill.Failure
	Attachments []ewaybill.Attachment
	Messages    []string
	Committed   bool
	RolledBack  bool
}

// Ewaybill returns the locked document.
func (m *MockUnitOfWork) Ewaybill() *ewaybill.Ewaybill {
	return m.Doc
}

// SaveSuccess records s and calls the mock function if set.
func (m *MockUnitOfWork) SaveSuccess(ctx context.Context, s ewaybill.Success) error {
	m.Successes = append(m.Successes, s)
	if m.SaveSuccessFunc != nil {
		return m.SaveSuccessFunc(ctx, s)
	}
	return nil
}

// SaveFailure records f and calls the mock function if set.
func (m *MockUnitOfWork) SaveFailure(ctx context.Context, f ewaybill.Failure) error {
	m.Failures = append(m.Failures, f)
	if m.SaveFailureFunc != nil {
		return m.SaveFailureFunc(ctx, f)
	}
	return nil
}

// AddAttachment records a.
func (m *MockUnitOfWork) AddAttachment(_ context.Context, a ewaybill.Attachment) error {
	m.Attachments = append(m.Attachments, a)
	return nil
}

// PostMessage records body.
func (m *MockUnitOfWork) PostMessage(_ context.Context, body string) error {
	m.Messages = append(m.Messages, body)
	return nil
}

// Commit marks the unit committed unless the mock function fails.
func (m *MockUnitOfWork) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.Committed = true
	return nil
}

// Rollback marks the unit rolled back when it was not committed and calls
// the mock function if set.
func (m *MockUnitOfWork) Rollback(ctx context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}
