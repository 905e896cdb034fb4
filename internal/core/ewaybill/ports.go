package ewaybill

import (
	"context"
	"time"
)

// Repository loads e-way bills and opens locked units of work on them.
type Repository interface {
	// Get returns the e-way bill with its linked move, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Ewaybill, error)
	// Company returns the issuing company with its portal credentials.
	Company(ctx context.Context, id int64) (Company, error)
	// Lock takes an exclusive lock on the e-way bill row for the lifetime of
	// the returned unit of work. It fails with ErrLocked when another process
	// holds it and ErrNotFound when the row does not exist.
	Lock(ctx context.Context, id int64) (UnitOfWork, error)
}

// UnitOfWork is a transaction scoped to one e-way bill. Nothing written
// through it is visible until Commit; Rollback after Commit is a no-op.
type UnitOfWork interface {
	Ewaybill() *Ewaybill
	SaveSuccess(ctx context.Context, s Success) error
	SaveFailure(ctx context.Context, f Failure) error
	AddAttachment(ctx context.Context, a Attachment) error
	PostMessage(ctx context.Context, body string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Submission is an accepted generation normalized across both portals.
type Submission struct {
	Name     string
	Date     time.Time
	Expiry   *time.Time
	Alert    string
	Response *Response
	Warnings []Warning
}

// Provider submits e-way bills to the government service.
type Provider interface {
	// GenerateByIRN generates from an already registered e-invoice.
	GenerateByIRN(ctx context.Context, company Company, payload Payload) (*Submission, error)
	// GenerateDirect submits the full shipment document.
	GenerateDirect(ctx context.Context, company Company, payload Payload) (*Submission, error)
}
