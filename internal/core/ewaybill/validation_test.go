package ewaybill

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCheckConfiguration(t *testing.T) {
	company := Company{ID: 1, Name: "Acme India", GSTIN: "29AABCT1332L000"}

	tests := []struct {
		name    string
		company Company
		setup   func(e *Ewaybill)
		want    []string
	}{
		{name: "valid direct document", company: company, setup: func(e *Ewaybill) {}},
		{
			name:    "company without gstin",
			company: Company{Name: "Acme India"},
			setup:   func(e *Ewaybill) {},
			want:    []string{`- GST Number is not set on company "Acme India"`},
		},
		{
			name:    "negative distance",
			company: company,
			setup:   func(e *Ewaybill) { e.Distance = decimal.NewFromInt(-1) },
			want:    []string{"- Distance cannot be negative"},
		},
		{
			name:    "distance over limit",
			company: company,
			setup:   func(e *Ewaybill) { e.Distance = decimal.NewFromInt(4001) },
			want:    []string{"- Distance cannot be more than 4000 km"},
		},
		{
			name:    "invalid mode",
			company: company,
			setup:   func(e *Ewaybill) { e.Mode = "" },
			want:    []string{"- Transportation Mode is missing or invalid"},
		},
		{
			name:    "transporter mode without id",
			company: company,
			setup: func(e *Ewaybill) {
				e.Mode = ModeManagedByTransporter
				e.TransporterID = ""
			},
			want: []string{"- Transporter ID is required when transportation is managed by the transporter"},
		},
		{
			name:    "road without vehicle or transporter",
			company: company,
			setup: func(e *Ewaybill) {
				e.VehicleNo = ""
				e.TransporterID = ""
			},
			want: []string{"- Vehicle Number or Transporter ID is required for road transport"},
		},
		{
			name:    "road with unknown vehicle type",
			company: company,
			setup:   func(e *Ewaybill) { e.VehicleType = "X" },
			want:    []string{"- Vehicle Type must be Regular or Over Dimensional Cargo"},
		},
		{
			name:    "ship without transport document",
			company: company,
			setup: func(e *Ewaybill) {
				e.Mode = ModeShip
				e.TransportDocNo = ""
				e.TransportDocDate = nil
			},
			want: []string{
				"- Transport Document Number is required for rail, air and ship transport",
				"- Transport Document Date is required for rail, air and ship transport",
			},
		},
		{
			name:    "direct document fields",
			company: company,
			setup: func(e *Ewaybill) {
				e.DocumentNumber = ""
				e.DocumentDate = time.Time{}
				e.SupplyType = ""
				e.Consignee.Pincode = "6000"
				e.Consignor.StateCode = ""
				e.Move.Lines[0].HSNCode = ""
			},
			want: []string{
				"- Document Number is required",
				"- Document Date is required",
				"- Supply Type, Sub Supply Type and Document Type are required",
				"- Consignor state code is required",
				"- Consignee pincode must have 6 digits",
				"- HSN code is missing on line 1",
			},
		},
		{
			name:    "direct document without lines",
			company: company,
			setup:   func(e *Ewaybill) { e.Move = nil },
			want:    []string{"- At least one product line is required"},
		},
		{
			name:    "irn route skips document checks",
			company: company,
			setup: func(e *Ewaybill) {
				e.Move = irnMove()
				e.DocumentNumber = ""
				e.Consignee = Party{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := directEwaybill()
			tt.setup(e)

			got := CheckConfiguration(e, tt.company)
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("expected\n%s\ngot\n%s", strings.Join(tt.want, "\n"), strings.Join(got, "\n"))
			}
		})
	}
}
