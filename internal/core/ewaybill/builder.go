package ewaybill

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

const portalDateLayout = "02/01/2006"

// BuildIRNPayload assembles the body of a generate-by-IRN request. The IRN is
// read from the stored e-invoice response; a missing IRN yields an empty
// "Irn" that the submission client rejects before calling out.
func BuildIRNPayload(e *Ewaybill) Payload {
	p := Payload{
		{Key: "Irn", Value: e.Move.IRN()},
		{Key: "Distance", Value: e.Distance.String()},
	}
	p.Extend(IRNTransportationFields(e))
	return p
}

// IRNTransportationFields uses the e-invoice portal schema.
func IRNTransportationFields(e *Ewaybill) Payload {
	var p Payload
	switch e.Mode {
	case ModeManagedByTransporter:
		setIfPresent(&p, "TransId", e.TransporterID)
		setIfPresent(&p, "TransName", e.TransporterName)
	case ModeRoad:
		setIfPresent(&p, "TransId", e.TransporterID)
		setIfPresent(&p, "TransName", e.TransporterName)
		p.Set("TransMode", string(e.Mode))
		setIfPresent(&p, "TransDocNo", e.TransportDocNo)
		if e.TransportDocDate != nil {
			p.Set("TransDocDt", e.TransportDocDate.Format(portalDateLayout))
		}
		setIfPresent(&p, "VehNo", e.VehicleNo)
		setIfPresent(&p, "VehType", e.VehicleType)
	case ModeRail, ModeAir, ModeShip:
		p.Set("TransMode", string(e.Mode))
		setIfPresent(&p, "TransDocNo", e.TransportDocNo)
		if e.TransportDocDate != nil {
			p.Set("TransDocDt", e.TransportDocDate.Format(portalDateLayout))
		}
	}
	return p
}

// DirectTransportationFields uses the E-Way Bill portal schema.
func DirectTransportationFields(e *Ewaybill) Payload {
	var p Payload
	switch e.Mode {
	case ModeManagedByTransporter:
		setIfPresent(&p, "transporterId", e.TransporterID)
		setIfPresent(&p, "transporterName", e.TransporterName)
	case ModeRoad:
		p.Set("transMode", string(e.Mode))
		setIfPresent(&p, "vehicleNo", e.VehicleNo)
		setIfPresent(&p, "vehicleType", e.VehicleType)
		setIfPresent(&p, "transporterId", e.TransporterID)
		setIfPresent(&p, "transporterName", e.TransporterName)
	case ModeRail, ModeAir, ModeShip:
		p.Set("transMode", string(e.Mode))
		setIfPresent(&p, "transDocNo", e.TransportDocNo)
		if e.TransportDocDate != nil {
			p.Set("transDocDate", e.TransportDocDate.Format(portalDateLayout))
		}
	}
	return p
}

// BuildDirectPayload assembles the full shipment document for the direct
// generation endpoint.
func BuildDirectPayload(e *Ewaybill) Payload {
	p := Payload{
		{Key: "supplyType", Value: e.SupplyType},
		{Key: "subSupplyType", Value: e.SubSupplyType},
		{Key: "docType", Value: e.DocumentType},
		{Key: "transactionType", Value: number(transactionTypeOrDefault(e.TransactionType))},
		{Key: "docNo", Value: e.DocumentNumber},
		{Key: "docDate", Value: e.DocumentDate.Format(portalDateLayout)},
	}
	p.Extend(partyFields("from", e.Consignor))
	p.Extend(partyFields("to", e.Consignee))

	var (
		items                           []any
		taxable, cgst, sgst, igst, cess decimal.Decimal
	)
	var lines []MoveLine
	if e.Move != nil {
		lines = e.Move.Lines
	}
	for i, line := range lines {
		items = append(items, Payload{
			{Key: "itemNo", Value: json.Number(strconv.Itoa(i + 1))},
			{Key: "productName", Value: line.ProductName},
			{Key: "productDesc", Value: line.Description},
			{Key: "hsnCode", Value: line.HSNCode},
			{Key: "quantity", Value: number(line.Quantity.String())},
			{Key: "qtyUnit", Value: line.UOMCode},
			{Key: "taxableAmount", Value: number(line.TaxableAmount.Round(2).String())},
			{Key: "cgstRate", Value: number(line.CGSTRate.String())},
			{Key: "sgstRate", Value: number(line.SGSTRate.String())},
			{Key: "igstRate", Value: number(line.IGSTRate.String())},
			{Key: "cessRate", Value: number(line.CessRate.String())},
		})
		taxable = taxable.Add(line.TaxableAmount)
		cgst = cgst.Add(line.CGSTAmount)
		sgst = sgst.Add(line.SGSTAmount)
		igst = igst.Add(line.IGSTAmount)
		cess = cess.Add(line.CessAmount)
	}
	if items == nil {
		items = []any{}
	}
	p.Set("itemList", items)
	p.Set("totalValue", number(taxable.Round(2).String()))
	p.Set("cgstValue", number(cgst.Round(2).String()))
	p.Set("sgstValue", number(sgst.Round(2).String()))
	p.Set("igstValue", number(igst.Round(2).String()))
	p.Set("cessValue", number(cess.Round(2).String()))

	other := decimal.Zero
	total := taxable.Add(cgst).Add(sgst).Add(igst).Add(cess)
	if e.Move != nil {
		other = e.Move.OtherAmount
		if !e.Move.TotalAmount.IsZero() {
			total = e.Move.TotalAmount
		}
	}
	p.Set("otherValue", number(other.Round(2).String()))
	p.Set("totInvValue", number(total.Round(2).String()))
	p.Set("transDistance", e.Distance.String())
	p.Extend(DirectTransportationFields(e))
	return p
}

// BuildPayload picks the payload shape from the routing decision.
func BuildPayload(e *Ewaybill) Payload {
	if e.IsProcessThroughIRN() {
		return BuildIRNPayload(e)
	}
	return BuildDirectPayload(e)
}

func partyFields(prefix string, party Party) Payload {
	return Payload{
		{Key: prefix + "Gstin", Value: gstinOrURP(party.GSTIN)},
		{Key: prefix + "TrdName", Value: party.TradeName},
		{Key: prefix + "Addr1", Value: party.Address1},
		{Key: prefix + "Addr2", Value: party.Address2},
		{Key: prefix + "Place", Value: party.Place},
		{Key: prefix + "Pincode", Value: number(party.Pincode)},
		{Key: prefix + "StateCode", Value: number(party.StateCode)},
	}
}

// Unregistered persons are reported with the URP placeholder.
func gstinOrURP(gstin string) string {
	if gstin == "" {
		return "URP"
	}
	return gstin
}

func transactionTypeOrDefault(t string) string {
	if t == "" {
		return "1"
	}
	return t
}

// number keeps numeric text exact in the payload; non-numeric text stays a string.
func number(s string) any {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return json.Number(d.String())
}

func setIfPresent(p *Payload, key, value string) {
	if value != "" {
		p.Set(key, value)
	}
}
