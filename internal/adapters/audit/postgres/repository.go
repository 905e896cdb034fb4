package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"3tcapital/ms_ewaybill_core/internal/core/audit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the audit.Repository interface using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL audit repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

const selectCalls = `
	SELECT id, correlation_id, ewaybill_id, provider, operation, request_method, request_url,
	       request_headers, request_body, response_status, response_headers,
	       response_body, duration_ms, COALESCE(error_message, ''), created_at
	FROM provider_audit_log`

// Save persists one provider call.
func (r *Repository) Save(ctx context.Context, call audit.ProviderCall) error {
	requestHeaders, err := json.Marshal(call.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(call.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO provider_audit_log (
			correlation_id, ewaybill_id, provider, operation, request_method, request_url,
			request_headers, request_body, response_status, response_headers,
			response_body, duration_ms, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		call.CorrelationID,
		call.EwaybillID,
		call.Provider,
		call.Operation,
		call.RequestMethod,
		call.RequestURL,
		requestHeaders,
		nullableJSON(call.RequestBody),
		call.ResponseStatus,
		responseHeaders,
		nullableJSON(call.ResponseBody),
		call.DurationMs,
		call.ErrorMessage,
	)
	if err != nil {
		r.log.Error("Failed to insert provider call",
			"correlation_id", call.CorrelationID,
			"operation", call.Operation,
			"error", err,
		)
		return fmt.Errorf("insert provider call: %w", err)
	}

	r.log.Debug("Provider call saved", "correlation_id", call.CorrelationID, "operation", call.Operation)
	return nil
}

// FindByCorrelationID returns the calls of one inbound request, oldest first.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.ProviderCall, error) {
	rows, err := r.pool.Query(ctx, selectCalls+`
		WHERE correlation_id = $1
		ORDER BY created_at, id`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query provider calls: %w", err)
	}
	return collectCalls(rows)
}

// FindByEwaybill returns up to limit calls made for an e-way bill, newest first.
func (r *Repository) FindByEwaybill(ctx context.Context, ewaybillID int64, limit int) ([]audit.ProviderCall, error) {
	rows, err := r.pool.Query(ctx, selectCalls+`
		WHERE ewaybill_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, ewaybillID, limit)
	if err != nil {
		return nil, fmt.Errorf("query provider calls: %w", err)
	}
	return collectCalls(rows)
}

func collectCalls(rows pgx.Rows) ([]audit.ProviderCall, error) {
	defer rows.Close()

	calls := []audit.ProviderCall{}
	for rows.Next() {
		var call audit.ProviderCall
		var requestHeaders, responseHeaders []byte
		if err := rows.Scan(
			&call.ID,
			&call.CorrelationID,
			&call.EwaybillID,
			&call.Provider,
			&call.Operation,
			&call.RequestMethod,
			&call.RequestURL,
			&requestHeaders,
			&call.RequestBody,
			&call.ResponseStatus,
			&responseHeaders,
			&call.ResponseBody,
			&call.DurationMs,
			&call.ErrorMessage,
			&call.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan provider call: %w", err)
		}

		var err error
		if call.RequestHeaders, err = decodeHeaders(requestHeaders); err != nil {
			return nil, fmt.Errorf("decode request headers: %w", err)
		}
		if call.ResponseHeaders, err = decodeHeaders(responseHeaders); err != nil {
			return nil, fmt.Errorf("decode response headers: %w", err)
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider calls: %w", err)
	}
	return calls, nil
}

// nullableJSON stores empty bodies as SQL NULL rather than invalid jsonb.
func nullableJSON(body json.RawMessage) any {
	if len(body) == 0 {
		return nil
	}
	return []byte(body)
}

func decodeHeaders(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, err
	}
	return headers, nil
}
