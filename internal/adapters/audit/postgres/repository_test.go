package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_ewaybill_core/internal/core/audit"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/database"
	"3tcapital/ms_ewaybill_core/internal/testutil"
)

var _ audit.Repository = (*Repository)(nil)

func TestNullableJSON(t *testing.T) {
	if got := nullableJSON(nil); got != nil {
		t.Errorf("expected nil for empty body, got %v", got)
	}
	got, ok := nullableJSON(json.RawMessage(`{"a":1}`)).([]byte)
	if !ok || string(got) != `{"a":1}` {
		t.Errorf("expected raw bytes, got %v", got)
	}
}

func TestDecodeHeaders(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		want    map[string]string
		wantErr bool
	}{
		{"null column", nil, nil, false},
		{"headers", []byte(`{"Content-Type":"application/json"}`), map[string]string{"Content-Type": "application/json"}, false},
		{"invalid", []byte(`[1]`), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeHeaders(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("expected %s=%s, got %s", k, v, got[k])
				}
			}
		})
	}
}

// Integration tests need a disposable database: DATABASE_TEST_URL=postgres://...
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.RunMigrations(ctx, pool, testutil.NewNullLogger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestRepository_SaveAndFind(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRepository(pool, testutil.NewNullLogger())
	ctx := context.Background()

	correlationID := "test-" + uuid.NewString()
	ewaybillID := int64(900000 + len(correlationID))
	status := 200

	calls := []audit.ProviderCall{
		{
			CorrelationID:  correlationID,
			EwaybillID:     &ewaybillID,
			Provider:       "iap",
			Operation:      "authenticate",
			RequestMethod:  "POST",
			RequestURL:     "https://l10n-in-edi-demo.api.odoo.com/iap/l10n_in_edi/1/authenticate",
			RequestHeaders: map[string]string{"Content-Type": "application/json"},
			RequestBody:    json.RawMessage(`{"params":{"password":"[REDACTED]"}}`),
			ResponseStatus: &status,
			ResponseBody:   json.RawMessage(`{"result":{"data":{"AuthToken":"[REDACTED]"}}}`),
			DurationMs:     120,
		},
		{
			CorrelationID: correlationID,
			EwaybillID:    &ewaybillID,
			Provider:      "iap",
			Operation:     "generate_ewaybill_by_irn",
			RequestMethod: "POST",
			RequestURL:    "https://l10n-in-edi-demo.api.odoo.com/iap/l10n_in_edi_ewaybill_irn/1/generate_ewaybill_by_irn",
			ErrorMessage:  "context deadline exceeded",
			DurationMs:    70000,
		},
	}
	for _, call := range calls {
		if err := repo.Save(ctx, call); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	byCorrelation, err := repo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		t.Fatalf("find by correlation: %v", err)
	}
	if len(byCorrelation) != 2 || byCorrelation[0].Operation != "authenticate" {
		t.Fatalf("unexpected calls %+v", byCorrelation)
	}
	if byCorrelation[0].RequestHeaders["Content-Type"] != "application/json" {
		t.Errorf("headers not round-tripped: %v", byCorrelation[0].RequestHeaders)
	}
	if byCorrelation[1].ResponseStatus != nil || byCorrelation[1].RequestBody != nil {
		t.Errorf("expected NULL status and body, got %+v", byCorrelation[1])
	}

	latest, err := repo.FindByEwaybill(ctx, ewaybillID, 1)
	if err != nil {
		t.Fatalf("find by ewaybill: %v", err)
	}
	if len(latest) != 1 || latest[0].Operation != "generate_ewaybill_by_irn" || !latest[0].Failed() {
		t.Errorf("expected the failed generate call first, got %+v", latest)
	}
}
