package ewaybill

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxDistanceKm is the largest distance the portal accepts.
const MaxDistanceKm = 4000

// CheckConfiguration lists every reason the e-way bill cannot be submitted
// yet. An empty result means the document is ready.
func CheckConfiguration(e *Ewaybill, company Company) []string {
	var errs []string

	if company.GSTIN == "" {
		errs = append(errs, fmt.Sprintf("- GST Number is not set on company %q", company.Name))
	}

	if e.Distance.IsNegative() {
		errs = append(errs, "- Distance cannot be negative")
	} else if e.Distance.GreaterThan(decimal.NewFromInt(MaxDistanceKm)) {
		errs = append(errs, fmt.Sprintf("- Distance cannot be more than %d km", MaxDistanceKm))
	}

	switch {
	case !e.Mode.Valid():
		errs = append(errs, "- Transportation Mode is missing or invalid")
	case e.Mode == ModeManagedByTransporter:
		if e.TransporterID == "" {
			errs = append(errs, "- Transporter ID is required when transportation is managed by the transporter")
		}
	case e.Mode == ModeRoad:
		if e.VehicleNo == "" && e.TransporterID == "" {
			errs = append(errs, "- Vehicle Number or Transporter ID is required for road transport")
		}
		if e.VehicleNo != "" && e.VehicleType != VehicleRegular && e.VehicleType != VehicleOverDimension {
			errs = append(errs, "- Vehicle Type must be Regular or Over Dimensional Cargo")
		}
	default:
		if e.TransportDocNo == "" {
			errs = append(errs, "- Transport Document Number is required for rail, air and ship transport")
		}
		if e.TransportDocDate == nil {
			errs = append(errs, "- Transport Document Date is required for rail, air and ship transport")
		}
	}

	if !e.IsProcessThroughIRN() {
		errs = append(errs, checkDirectDocument(e)...)
	}
	return errs
}

func checkDirectDocument(e *Ewaybill) []string {
	var errs []string
	if e.DocumentNumber == "" {
		errs = append(errs, "- Document Number is required")
	}
	if e.DocumentDate.IsZero() {
		errs = append(errs, "- Document Date is required")
	}
	if e.SupplyType == "" || e.SubSupplyType == "" || e.DocumentType == "" {
		errs = append(errs, "- Supply Type, Sub Supply Type and Document Type are required")
	}
	for _, side := range []struct {
		label string
		party Party
	}{{"Consignor", e.Consignor}, {"Consignee", e.Consignee}} {
		if len(side.party.Pincode) != 6 {
			errs = append(errs, fmt.Sprintf("- %s pincode must have 6 digits", side.label))
		}
		if side.party.StateCode == "" {
			errs = append(errs, fmt.Sprintf("- %s state code is required", side.label))
		}
	}
	if e.Move == nil || len(e.Move.Lines) == 0 {
		errs = append(errs, "- At least one product line is required")
		return errs
	}
	for i, line := range e.Move.Lines {
		if line.HSNCode == "" {
			errs = append(errs, fmt.Sprintf("- HSN code is missing on line %d", i+1))
		}
	}
	return errs
}
