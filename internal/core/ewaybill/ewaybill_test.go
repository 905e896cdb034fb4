package ewaybill

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsProcessThroughIRN(t *testing.T) {
	debitOrigin := int64(7)
	einvoice := func(state string) []EDIDocument {
		return []EDIDocument{{FormatCode: EInvoiceFormatCode, State: state}}
	}

	tests := []struct {
		name string
		move *Move
		want bool
	}{
		{"no move", nil, false},
		{"invoice sent", &Move{MoveType: MoveTypeOutInvoice, EDIDocuments: einvoice(EDIStateSent)}, true},
		{"invoice to send", &Move{MoveType: MoveTypeOutInvoice, EDIDocuments: einvoice(EDIStateToSend)}, true},
		{"invoice cancelled", &Move{MoveType: MoveTypeOutInvoice, EDIDocuments: einvoice("cancelled")}, false},
		{"other format", &Move{MoveType: MoveTypeOutInvoice, EDIDocuments: []EDIDocument{{FormatCode: "facturx_1_0_05", State: EDIStateSent}}}, false},
		{"no edi documents", &Move{MoveType: MoveTypeOutInvoice}, false},
		{"credit note", &Move{MoveType: MoveTypeOutRefund, EDIDocuments: einvoice(EDIStateSent)}, false},
		{"debit note", &Move{MoveType: MoveTypeOutInvoice, DebitOriginID: &debitOrigin, EDIDocuments: einvoice(EDIStateSent)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Ewaybill{Move: tt.move}
			if got := e.IsProcessThroughIRN(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMove_IRN(t *testing.T) {
	var nilMove *Move
	if nilMove.IRN() != "" {
		t.Error("expected empty IRN for nil move")
	}
	m := &Move{EInvoiceResponse: map[string]any{"Irn": "a1b2"}}
	if m.IRN() != "a1b2" {
		t.Errorf("expected a1b2, got %q", m.IRN())
	}
}

func TestTransportMode_Valid(t *testing.T) {
	for _, m := range []TransportMode{ModeManagedByTransporter, ModeRoad, ModeRail, ModeAir, ModeShip} {
		if !m.Valid() {
			t.Errorf("expected %q to be valid", m)
		}
	}
	for _, m := range []TransportMode{"", "5", "road"} {
		if m.Valid() {
			t.Errorf("expected %q to be invalid", m)
		}
	}
}

func TestIndianTimeToUTC(t *testing.T) {
	want := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		layout string
	}{
		{"irn layout", "2024-01-15 12:30:00", IRNDateLayout},
		{"direct layout", "15/01/2024 12:30:00 PM", DirectDateLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IndianTimeToUTC(tt.value, tt.layout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(want) || got.Location() != time.UTC {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}

	if got, err := IndianTimeToUTC("", IRNDateLayout); got != nil || err != nil {
		t.Errorf("expected nil for empty value, got %v, %v", got, err)
	}
	if _, err := IndianTimeToUTC("15-01-2024", IRNDateLayout); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDistanceFromAlert(t *testing.T) {
	alert := ", Distance between these two pincodes is 118, "

	tests := []struct {
		name      string
		submitted decimal.Decimal
		alert     string
		want      int64
		ok        bool
	}{
		{"zero distance with alert", decimal.Zero, alert, 118, true},
		{"non zero distance keeps its value", decimal.NewFromInt(100), alert, 0, false},
		{"empty alert", decimal.Zero, "", 0, false},
		{"unrelated alert", decimal.Zero, "Vehicle number format changed", 0, false},
		{"zero in alert", decimal.Zero, "Distance between these two pincodes is 0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DistanceFromAlert(tt.submitted, tt.alert)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("expected %d, got %s", tt.want, got)
			}
		})
	}
}
