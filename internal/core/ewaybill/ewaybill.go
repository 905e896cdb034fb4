package ewaybill

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the lifecycle state of an e-way bill record.
type State string

const (
	StatePending   State = "pending"
	StateGenerated State = "generated"
	StateCancel    State = "cancel"
)

// BlockingLevel tells operators how severe the last recorded error is.
type BlockingLevel string

const (
	BlockingWarning BlockingLevel = "warning"
	BlockingError   BlockingLevel = "error"
)

// TransportMode uses the codes of the government portal.
type TransportMode string

const (
	ModeManagedByTransporter TransportMode = "0"
	ModeRoad                 TransportMode = "1"
	ModeRail                 TransportMode = "2"
	ModeAir                  TransportMode = "3"
	ModeShip                 TransportMode = "4"
)

// Valid reports whether m is one of the known portal codes.
func (m TransportMode) Valid() bool {
	switch m {
	case ModeManagedByTransporter, ModeRoad, ModeRail, ModeAir, ModeShip:
		return true
	}
	return false
}

// VehicleType values accepted by the portal.
const (
	VehicleRegular       = "R"
	VehicleOverDimension = "O"
)

// Move types and EDI values that drive the routing decision.
const (
	MoveTypeOutInvoice = "out_invoice"
	MoveTypeOutRefund  = "out_refund"

	EInvoiceFormatCode = "in_einvoice_1_03"

	EDIStateToSend = "to_send"
	EDIStateSent   = "sent"
)

// EDIDocument is one electronic submission attached to a move.
type EDIDocument struct {
	FormatCode string `json:"formatCode"`
	State      string `json:"state"`
}

// MoveLine is an invoice line carried into the direct payload.
type MoveLine struct {
	ProductName   string          `json:"productName"`
	Description   string          `json:"description"`
	HSNCode       string          `json:"hsnCode"`
	Quantity      decimal.Decimal `json:"quantity"`
	UOMCode       string          `json:"uomCode"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	CGSTRate      decimal.Decimal `json:"cgstRate"`
	SGSTRate      decimal.Decimal `json:"sgstRate"`
	IGSTRate      decimal.Decimal `json:"igstRate"`
	CessRate      decimal.Decimal `json:"cessRate"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	CessAmount    decimal.Decimal `json:"cessAmount"`
}

// Move is the accounting document an e-way bill may be linked to.
// It is owned by the accounting side and only read here.
type Move struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	MoveType         string          `json:"moveType"`
	DebitOriginID    *int64          `json:"debitOriginId,omitempty"`
	EDIDocuments     []EDIDocument   `json:"ediDocuments"`
	EInvoiceResponse map[string]any  `json:"-"`
	Lines            []MoveLine      `json:"lines"`
	OtherAmount      decimal.Decimal `json:"otherAmount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}

// IRN returns the invoice reference number stored by the e-invoice leg, or "".
func (m *Move) IRN() string {
	if m == nil || m.EInvoiceResponse == nil {
		return ""
	}
	irn, _ := m.EInvoiceResponse["Irn"].(string)
	return irn
}

// Party is a consignor or consignee as the portal expects it.
type Party struct {
	GSTIN     string `json:"gstin"`
	TradeName string `json:"tradeName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	Place     string `json:"place"`
	Pincode   string `json:"pincode"`
	StateCode string `json:"stateCode"`
}

// Ewaybill is the shipment document submitted to the E-Way Bill system.
type Ewaybill struct {
	ID                 int64           `json:"id"`
	CompanyID          int64           `json:"companyId"`
	Name               *string         `json:"name"`
	State              State           `json:"state"`
	Distance           decimal.Decimal `json:"distance"`
	Content            string          `json:"content,omitempty"`
	EwaybillDate       *time.Time      `json:"ewaybillDate"`
	EwaybillExpiryDate *time.Time      `json:"ewaybillExpiryDate"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	BlockingLevel      BlockingLevel   `json:"blockingLevel,omitempty"`

	Mode             TransportMode `json:"mode"`
	VehicleNo        string        `json:"vehicleNo,omitempty"`
	VehicleType      string        `json:"vehicleType,omitempty"`
	TransporterID    string        `json:"transporterId,omitempty"`
	TransporterName  string        `json:"transporterName,omitempty"`
	TransportDocNo   string        `json:"transportDocNo,omitempty"`
	TransportDocDate *time.Time    `json:"transportDocDate,omitempty"`

	SupplyType      string    `json:"supplyType"`
	SubSupplyType   string    `json:"subSupplyType"`
	DocumentType    string    `json:"documentType"`
	DocumentNumber  string    `json:"documentNumber"`
	DocumentDate    time.Time `json:"documentDate"`
	TransactionType string    `json:"transactionType"`
	Consignor       Party     `json:"consignor"`
	Consignee       Party     `json:"consignee"`

	Move *Move `json:"move,omitempty"`
}

// IsProcessThroughIRN reports whether the e-way bill must be generated from the
// IRN of its linked e-invoice. It is derived from the move on every call since
// the EDI state can move between to_send and sent at any time.
func (e *Ewaybill) IsProcessThroughIRN() bool {
	move := e.Move
	if move == nil {
		return false
	}
	// Never by IRN for credit notes and debit notes.
	if move.MoveType == MoveTypeOutRefund || move.DebitOriginID != nil {
		return false
	}
	for _, doc := range move.EDIDocuments {
		if doc.FormatCode == EInvoiceFormatCode && (doc.State == EDIStateSent || doc.State == EDIStateToSend) {
			return true
		}
	}
	return false
}

// Company holds the GST identity and portal credentials of the issuing company.
type Company struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	GSTIN            string `json:"gstin"`
	EDIUsername      string `json:"-"`
	EDIPassword      string `json:"-"`
	EwaybillUsername string `json:"-"`
	EwaybillPassword string `json:"-"`
}

// Attachment is the raw remote response stored for audit.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// Success carries every field written when the portal accepted the document.
type Success struct {
	Name         string
	Date         time.Time
	Expiry       *time.Time
	Distance     *decimal.Decimal
	Content      string
	ErrorMessage string
	Blocking     BlockingLevel
}

// Failure is the error record written when generation failed.
type Failure struct {
	Message  string
	Blocking BlockingLevel
}
