package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// lockNotAvailable is the SQLSTATE raised by NOWAIT when the row is locked.
const lockNotAvailable = "55P03"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements the ewaybill.Repository interface using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL e-way bill repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

const selectEwaybill = `
	SELECT id, company_id, move_id, name, state, distance::text, content,
	       ewaybill_date, ewaybill_expiry_date, error_message, blocking_level,
	       mode, vehicle_no, vehicle_type, transporter_id, transporter_name,
	       transport_doc_no, transport_doc_date,
	       supply_type, sub_supply_type, document_type, document_number, document_date,
	       transaction_type, consignor, consignee
	FROM ewaybills
	WHERE id = $1`

// Get returns the e-way bill with its linked move.
func (r *Repository) Get(ctx context.Context, id int64) (*ewaybill.Ewaybill, error) {
	e, err := r.load(ctx, r.pool, selectEwaybill, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Company returns the issuing company with its portal credentials.
func (r *Repository) Company(ctx context.Context, id int64) (ewaybill.Company, error) {
	query := `
		SELECT id, name, gstin, edi_username, edi_password, ewaybill_username, ewaybill_password
		FROM companies
		WHERE id = $1
	`

	var c ewaybill.Company
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.GSTIN,
		&c.EDIUsername,
		&c.EDIPassword,
		&c.EwaybillUsername,
		&c.EwaybillPassword,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ewaybill.Company{}, fmt.Errorf("company %d: %w", id, ewaybill.ErrNotFound)
	}
	if err != nil {
		return ewaybill.Company{}, fmt.Errorf("query company: %w", err)
	}
	return c, nil
}

// Lock opens a transaction holding the row lock of the e-way bill. The lock
// is not waited for: a concurrent holder yields ewaybill.ErrLocked at once.
func (r *Repository) Lock(ctx context.Context, id int64) (ewaybill.UnitOfWork, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	e, err := r.load(ctx, tx, selectEwaybill+" FOR UPDATE NOWAIT", id)
	if err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.log.Warn("Failed to roll back e-way bill lock", "ewaybill_id", id, "error", rbErr)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			r.log.Info("E-way bill locked by another process", "ewaybill_id", id)
			return nil, ewaybill.ErrLocked
		}
		return nil, err
	}

	return &unitOfWork{tx: tx, ewaybill: e, log: r.log}, nil
}

func (r *Repository) load(ctx context.Context, q querier, query string, id int64) (*ewaybill.Ewaybill, error) {
	var (
		e                    ewaybill.Ewaybill
		moveID               *int64
		distance             string
		mode                 string
		blocking             string
		state                string
		consignor, consignee []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.CompanyID,
		&moveID,
		&e.Name,
		&state,
		&distance,
		&e.Content,
		&e.EwaybillDate,
		&e.EwaybillExpiryDate,
		&e.ErrorMessage,
		&blocking,
		&mode,
		&e.VehicleNo,
		&e.VehicleType,
		&e.TransporterID,
		&e.TransporterName,
		&e.TransportDocNo,
		&e.TransportDocDate,
		&e.SupplyType,
		&e.SubSupplyType,
		&e.DocumentType,
		&e.DocumentNumber,
		&e.DocumentDate,
		&e.TransactionType,
		&consignor,
		&consignee,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ewaybill.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ewaybill: %w", err)
	}

	e.State = ewaybill.State(state)
	e.Mode = ewaybill.TransportMode(mode)
	e.BlockingLevel = ewaybill.BlockingLevel(blocking)
	if e.Distance, err = decimal.NewFromString(distance); err != nil {
		return nil, fmt.Errorf("parse distance %q: %w", distance, err)
	}
	if err := json.Unmarshal(consignor, &e.Consignor); err != nil {
		return nil, fmt.Errorf("unmarshal consignor: %w", err)
	}
	if err := json.Unmarshal(consignee, &e.Consignee); err != nil {
		return nil, fmt.Errorf("unmarshal consignee: %w", err)
	}

	if moveID != nil {
		move, err := loadMove(ctx, q, *moveID)
		if err != nil {
			return nil, err
		}
		e.Move = move
	}

	return &e, nil
}

func loadMove(ctx context.Context, q querier, id int64) (*ewaybill.Move, error) {
	query := `
		SELECT id, name, move_type, debit_origin_id, einvoice_response,
		       other_amount::text, total_amount::text
		FROM moves
		WHERE id = $1
	`

	var (
		m                  ewaybill.Move
		einvoiceResponse   []byte
		otherAmount, total string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.MoveType,
		&m.DebitOriginID,
		&einvoiceResponse,
		&otherAmount,
		&total,
	)
	if err != nil {
		return nil, fmt.Errorf("query move %d: %w", id, err)
	}

	if len(einvoiceResponse) > 0 {
		if err := json.Unmarshal(einvoiceResponse, &m.EInvoiceResponse); err != nil {
			return nil, fmt.Errorf("unmarshal einvoice response: %w", err)
		}
	}
	if m.OtherAmount, err = decimal.NewFromString(otherAmount); err != nil {
		return nil, fmt.Errorf("parse other amount: %w", err)
	}
	if m.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}

	if m.EDIDocuments, err = loadEDIDocuments(ctx, q, id); err != nil {
		return nil, err
	}
	if m.Lines, err = loadLines(ctx, q, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func loadEDIDocuments(ctx context.Context, q querier, moveID int64) ([]ewaybill.EDIDocument, error) {
	rows, err := q.Query(ctx, `SELECT format_code, state FROM move_edi_documents WHERE move_id = $1 ORDER BY id`, moveID)
	if err != nil {
		return nil, fmt.Errorf("query edi documents: %w", err)
	}
	defer rows.Close()

	var docs []ewaybill.EDIDocument
	for rows.Next() {
		var doc ewaybill.EDIDocument
		if err := rows.Scan(&doc.FormatCode, &doc.State); err != nil {
			return nil, fmt.Errorf("scan edi document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edi documents: %w", err)
	}
	return docs, nil
}

func loadLines(ctx context.Context, q querier, moveID int64) ([]ewaybill.MoveLine, error) {
	query := `
		SELECT product_name, description, hsn_code, quantity::text, uom_code,
		       taxable_amount::text, cgst_rate::text, sgst_rate::text, igst_rate::text, cess_rate::text,
		       cgst_amount::text, sgst_amount::text, igst_amount::text, cess_amount::text
		FROM move_lines
		WHERE move_id = $1
		ORDER BY sequence, id
	`

	rows, err := q.Query(ctx, query, moveID)
	if err != nil {
		return nil, fmt.Errorf("query move lines: %w", err)
	}
	defer rows.Close()

	var lines []ewaybill.MoveLine
	for rows.Next() {
		var (
			line    ewaybill.MoveLine
			numbers [10]string
		)
		if err := rows.Scan(
			&line.ProductName,
			&line.Description,
			&line.HSNCode,
			&numbers[0],
			&line.UOMCode,
			&numbers[1], &numbers[2], &numbers[3], &numbers[4], &numbers[5],
			&numbers[6], &numbers[7], &numbers[8], &numbers[9],
		); err != nil {
			return nil, fmt.Errorf("scan move line: %w", err)
		}

		targets := []*decimal.Decimal{
			&line.Quantity,
			&line.TaxableAmount, &line.CGSTRate, &line.SGSTRate, &line.IGSTRate, &line.CessRate,
			&line.CGSTAmount, &line.SGSTAmount, &line.IGSTAmount, &line.CessAmount,
		}
		for i, target := range targets {
			if *target, err = decimal.NewFromString(numbers[i]); err != nil {
				return nil, fmt.Errorf("parse move line amount %q: %w", numbers[i], err)
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate move lines: %w", err)
	}
	return lines, nil
}

// unitOfWork writes through the transaction holding the row lock.
type unitOfWork struct {
	tx       pgx.Tx
	ewaybill *ewaybill.Ewaybill
	log      *slog.Logger
	done     bool
}

func (u *unitOfWork) Ewaybill() *ewaybill.Ewaybill {
	return u.ewaybill
}

// SaveSuccess records the accepted generation. The distance is only
// overwritten when the portal reported one.
func (u *unitOfWork) SaveSuccess(ctx context.Context, s ewaybill.Success) error {
	var distance *string
	if s.Distance != nil {
		d := s.Distance.String()
		distance = &d
	}

	query := `
		UPDATE ewaybills SET
			name = $2,
			state = $3,
			ewaybill_date = $4,
			ewaybill_expiry_date = $5,
			distance = COALESCE($6::numeric, distance),
			content = $7,
			error_message = $8,
			blocking_level = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := u.tx.Exec(ctx, query,
		u.ewaybill.ID,
		s.Name,
		string(ewaybill.StateGenerated),
		s.Date.UTC(),
		utcOrNil(s.Expiry),
		distance,
		s.Content,
		s.ErrorMessage,
		string(s.Blocking),
	)
	if err != nil {
		return fmt.Errorf("update ewaybill success: %w", err)
	}
	return nil
}

// SaveFailure records the error without touching name, state or dates.
func (u *unitOfWork) SaveFailure(ctx context.Context, f ewaybill.Failure) error {
	_, err := u.tx.Exec(ctx,
		`UPDATE ewaybills SET error_message = $2, blocking_level = $3, updated_at = NOW() WHERE id = $1`,
		u.ewaybill.ID, f.Message, string(f.Blocking),
	)
	if err != nil {
		return fmt.Errorf("update ewaybill failure: %w", err)
	}
	return nil
}

func (u *unitOfWork) AddAttachment(ctx context.Context, a ewaybill.Attachment) error {
	_, err := u.tx.Exec(ctx,
		`INSERT INTO ewaybill_attachments (ewaybill_id, name, mimetype, data) VALUES ($1, $2, $3, $4)`,
		u.ewaybill.ID, a.Name, a.MimeType, a.Data,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (u *unitOfWork) PostMessage(ctx context.Context, body string) error {
	_, err := u.tx.Exec(ctx,
		`INSERT INTO ewaybill_messages (ewaybill_id, body) VALUES ($1, $2)`,
		u.ewaybill.ID, body,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ewaybill: %w", err)
	}
	u.done = true
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback ewaybill: %w", err)
	}
	return nil
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
