package ewaybill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
	ctxutil "3tcapital/ms_ewaybill_core/internal/infrastructure/context"
)

// writeBackTimeout bounds recording the outcome of a remote call. The write
// runs detached from the caller's context.
const writeBackTimeout = 30 * time.Second

// Service orchestrates e-way bill generation use cases.
type Service struct {
	repo     ewaybill.Repository
	provider ewaybill.Provider
	log      *slog.Logger
}

// NewService creates a new e-way bill service.
func NewService(repo ewaybill.Repository, provider ewaybill.Provider, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		log:      log,
	}
}

// Get returns the e-way bill identified by id.
func (s *Service) Get(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	return s.repo.Get(ctx, id)
}

// Content returns the base64 JSON content of the e-way bill with the
// payload it encodes. Generated documents return what was submitted; others
// return what would be submitted now.
func (s *Service) Content(ctx context.Context, id int64) (string, ewaybill.Payload, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	if e.State == ewaybill.StateGenerated && e.Content != "" {
		payload, err := ewaybill.DecodeContent(e.Content)
		if err != nil {
			return "", nil, fmt.Errorf("decode stored content: %w", err)
		}
		return e.Content, payload, nil
	}

	payload := ewaybill.BuildPayload(e)
	content, err := ewaybill.EncodeContent(payload)
	if err != nil {
		return "", nil, fmt.Errorf("encode content: %w", err)
	}
	return content, payload, nil
}

// Generate submits the e-way bill to the government service on the route
// selected by its linked move and records the outcome.
//
// Remote failures are committed on the document (message and blocking level)
// and returned as *ewaybill.Error. Configuration errors and lock conflicts
// leave the document untouched.
func (s *Service) Generate(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	ctx = ctxutil.WithEwaybillID(ctx, id)
	log := s.log.With("ewaybill_id", id, "correlation_id", ctxutil.GetCorrelationID(ctx))

	uow, err := s.repo.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := uow.Rollback(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release e-way bill lock", "error", err)
		}
	}()

	e := uow.Ewaybill()
	if e.State != ewaybill.StatePending {
		return nil, fmt.Errorf("%w: state is %s", ewaybill.ErrNotPending, e.State)
	}

	company, err := s.repo.Company(ctx, e.CompanyID)
	if err != nil {
		return nil, err
	}

	if violations := ewaybill.CheckConfiguration(e, company); len(violations) > 0 {
		log.Info("E-way bill configuration incomplete", "violations", len(violations))
		return nil, ewaybill.NewConfigurationError(violations)
	}

	payload := ewaybill.BuildPayload(e)
	content, err := ewaybill.EncodeContent(payload)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	byIRN := e.IsProcessThroughIRN()
	log.Info("Generating e-way bill", "by_irn", byIRN)

	var submission *ewaybill.Submission
	if byIRN {
		submission, err = s.provider.GenerateByIRN(ctx, company, payload)
	} else {
		submission, err = s.provider.GenerateDirect(ctx, company, payload)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancel()

	if err != nil {
		var generationErr *ewaybill.Error
		if !errors.As(err, &generationErr) {
			return nil, fmt.Errorf("generate ewaybill: %w", err)
		}
		if recordErr := s.recordFailure(writeCtx, uow, generationErr); recordErr != nil {
			log.Error("Failed to record e-way bill error", "error", recordErr)
			return nil, recordErr
		}
		log.Warn("E-way bill generation failed", "kind", generationErr.Kind, "codes", generationErr.Codes())
		return nil, err
	}

	if err := s.recordSuccess(writeCtx, uow, e, submission, content); err != nil {
		// The portal accepted the document; losing it here must be loud.
		log.Error("Failed to record generated e-way bill", "name", submission.Name, "error", err)
		return nil, err
	}

	log.Info("E-way bill generated", "name", submission.Name)
	return e, nil
}

func (s *Service) recordFailure(ctx context.Context, uow ewaybill.UnitOfWork, genErr *ewaybill.Error) error {
	posted, notes := splitWarnings(genErr.Warnings)
	for _, msg := range posted {
		if err := uow.PostMessage(ctx, msg); err != nil {
			return err
		}
	}

	message := genErr.Message()
	if len(notes) > 0 {
		message = strings.Join(append([]string{message}, notes...), "\n")
	}
	if err := uow.SaveFailure(ctx, ewaybill.Failure{Message: message, Blocking: genErr.BlockingLevel()}); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func (s *Service) recordSuccess(ctx context.Context, uow ewaybill.UnitOfWork, e *ewaybill.Ewaybill, sub *ewaybill.Submission, content string) error {
	raw, err := json.Marshal(sub.Response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := uow.AddAttachment(ctx, ewaybill.Attachment{
		Name:     sub.Name + "_ewaybill.json",
		MimeType: "application/json",
		Data:     raw,
	}); err != nil {
		return err
	}

	posted, notes := splitWarnings(sub.Warnings)
	for _, msg := range posted {
		if err := uow.PostMessage(ctx, msg); err != nil {
			return err
		}
	}

	success := ewaybill.Success{
		Name:    sub.Name,
		Date:    sub.Date.UTC(),
		Expiry:  sub.Expiry,
		Content: content,
	}
	if len(notes) > 0 {
		success.ErrorMessage = strings.Join(notes, "\n")
		success.Blocking = ewaybill.BlockingWarning
	}
	if distance, ok := ewaybill.DistanceFromAlert(e.Distance, sub.Alert); ok {
		success.Distance = &distance
	}

	if err := uow.SaveSuccess(ctx, success); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	name := sub.Name
	e.Name = &name
	e.State = ewaybill.StateGenerated
	e.EwaybillDate = &success.Date
	e.EwaybillExpiryDate = sub.Expiry
	e.Content = content
	e.ErrorMessage = success.ErrorMessage
	e.BlockingLevel = success.Blocking
	if success.Distance != nil {
		e.Distance = *success.Distance
	}
	return nil
}

// splitWarnings separates warnings meant for the message log from those
// stored on the document.
func splitWarnings(warnings []ewaybill.Warning) (posted, notes []string) {
	for _, w := range warnings {
		if w.MessagePost {
			posted = append(posted, w.Message)
			continue
		}
		notes = append(notes, w.Message)
	}
	return posted, notes
}
