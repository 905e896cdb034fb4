package iap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

const (
	generateByIRNPath  = "/iap/l10n_in_edi/1/generate_ewaybill_by_irn"
	getByIRNPath       = "/iap/l10n_in_edi/1/get_ewaybill_by_irn"
	generateDirectPath = "/iap/l10n_in_edi_ewaybill/1/generate"
	getByConsignerPath = "/iap/l10n_in_edi_ewaybill/1/getewaybillgeneratedbyconsigner"
)

// Error codes handled by the remediation logic.
const (
	CodeIRNInvalidToken    = "1005"
	CodeIRNAlreadyExists   = "4002"
	CodeIRNAlreadyExistsV2 = "4026"
	CodeDirectInvalidToken = "238"
	CodeDirectDuplicate    = "604"
)

const (
	waitingMessage     = "waiting For IRN generation To create E-waybill"
	irnNoTokenMessage  = "Unable to send E-waybill by IRN. Ensure GST Number set on company setting and EDI and Ewaybill credentials are Verified."
	directNoTokenMsg   = "Unable to send E-waybill. Ensure GST Number set on company setting and Ewaybill credentials are Verified."
	missingNameMessage = "The response does not contain an E-waybill number."
	helpMessageFormat  = "Somehow this E-waybill has been %s in the government portal before. You can verify by checking the details into the government (https://ewaybillgst.gov.in/Others/EBPrintnew.aspx)"
)

// route describes one generation endpoint and the codes it remediates.
type route struct {
	name           string
	path           string
	auth           *AuthManager
	noTokenMessage string
	staleToken     string
	duplicates     []string
	nameKey        string
	dateKey        string
	expiryKey      string
	dateLayout     string
	lookup         func(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) *ewaybill.Response
}

// Client generates e-way bills through the IAP proxy on either route.
type Client struct {
	connector     *Connector
	ediAuth       *AuthManager
	ewaybillAuth  *AuthManager
	buyCreditsURL string
	log           *slog.Logger
	now           func() time.Time
}

// NewClient creates a client. ediAuth serves generation by IRN and the
// IRN lookup, ewaybillAuth serves direct generation.
func NewClient(connector *Connector, ediAuth, ewaybillAuth *AuthManager, buyCreditsURL string, log *slog.Logger) *Client {
	return &Client{
		connector:     connector,
		ediAuth:       ediAuth,
		ewaybillAuth:  ewaybillAuth,
		buyCreditsURL: buyCreditsURL,
		log:           log,
		now:           time.Now,
	}
}

// GenerateByIRN generates an e-way bill from the IRN of a registered
// e-invoice.
func (c *Client) GenerateByIRN(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error) {
	if payload.String("Irn") == "" {
		return nil, &ewaybill.Error{
			Kind:    ewaybill.KindWaitingForIRN,
			Entries: []ewaybill.RemoteError{{Code: ewaybill.CodeWaiting, Message: waitingMessage}},
		}
	}
	return c.submit(ctx, route{
		name:           "irn",
		path:           generateByIRNPath,
		auth:           c.ediAuth,
		noTokenMessage: irnNoTokenMessage,
		staleToken:     CodeIRNInvalidToken,
		duplicates:     []string{CodeIRNAlreadyExists, CodeIRNAlreadyExistsV2},
		nameKey:        "EwbNo",
		dateKey:        "EwbDt",
		expiryKey:      "EwbValidTill",
		dateLayout:     ewaybill.IRNDateLayout,
		lookup: func(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) *ewaybill.Response {
			return c.GetByIRN(ctx, company, payload.String("Irn"))
		},
	}, company, payload)
}

// GenerateDirect submits the full shipment document to the E-Way Bill
// service.
func (c *Client) GenerateDirect(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error) {
	return c.submit(ctx, route{
		name:           "direct",
		path:           generateDirectPath,
		auth:           c.ewaybillAuth,
		noTokenMessage: directNoTokenMsg,
		staleToken:     CodeDirectInvalidToken,
		duplicates:     []string{CodeDirectDuplicate},
		nameKey:        "ewayBillNo",
		dateKey:        "ewayBillDate",
		expiryKey:      "validUpto",
		dateLayout:     ewaybill.DirectDateLayout,
		lookup: func(ctx context.Context, company ewaybill.Company, payload ewaybill.Payload) *ewaybill.Response {
			return c.GetByConsigner(ctx, company, payload.String("docType"), payload.String("docNo"))
		},
	}, company, payload)
}

// GetByIRN looks up the e-way bill generated from irn.
func (c *Client) GetByIRN(ctx context.Context, company ewaybill.Company, irn string) *ewaybill.Response {
	token, err := c.ediAuth.Token(ctx, company)
	if err != nil {
		c.log.Warn("EDI token unavailable for lookup", "company_id", company.ID, "error", err)
	}
	if token == "" {
		return ewaybill.NotConfiguredResponse()
	}
	return c.connector.Connect(ctx, company.GSTIN, c.ediAuth.Username(company), getByIRNPath, map[string]any{
		"auth_token": token,
		"irn":        irn,
	})
}

// GetByConsigner looks up an e-way bill generated for a consigner document.
func (c *Client) GetByConsigner(ctx context.Context, company ewaybill.Company, docType, docNo string) *ewaybill.Response {
	token, err := c.ewaybillAuth.Token(ctx, company)
	if err != nil {
		c.log.Warn("E-waybill token unavailable for lookup", "company_id", company.ID, "error", err)
	}
	if token == "" {
		return ewaybill.NotConfiguredResponse()
	}
	return c.connector.Connect(ctx, company.GSTIN, c.ewaybillAuth.Username(company), getByConsignerPath, map[string]any{
		"auth_token": token,
		"docType":    docType,
		"docNo":      docNo,
	})
}

func (c *Client) submit(ctx context.Context, r route, company ewaybill.Company, payload ewaybill.Payload) (*ewaybill.Submission, error) {
	log := c.log.With("route", r.name, "company_id", company.ID)

	token, err := r.auth.Token(ctx, company)
	if err != nil {
		log.Warn("Portal token unavailable", "error", err)
	}
	if token == "" {
		return nil, &ewaybill.Error{
			Kind:    ewaybill.KindCredential,
			Entries: []ewaybill.RemoteError{{Code: ewaybill.CodeNotConfigured, Message: r.noTokenMessage}},
		}
	}

	username := r.auth.Username(company)
	send := func(token string) *ewaybill.Response {
		return c.connector.Connect(ctx, company.GSTIN, username, r.path, map[string]any{
			"auth_token":   token,
			"json_payload": payload,
		})
	}

	resp := send(token)

	if resp.HasCode(r.staleToken) {
		// One refresh and one retransmission; a second stale token is final.
		log.Info("Portal rejected token, re-authenticating", "code", r.staleToken)
		if err := r.auth.Authenticate(ctx, company); err != nil {
			log.Warn("Re-authentication failed, retrying with previous token", "error", err)
		} else if fresh, err := r.auth.Token(ctx, company); err == nil && fresh != "" {
			token = fresh
		}
		resp = send(token)
	}

	warnings := append([]ewaybill.Warning(nil), resp.Warnings...)
	if resp.HasCode(ewaybill.CodeNoCredit) {
		warnings = append(warnings, ewaybill.Warning{Message: c.buyCreditsMessage()})
	}

	if resp.HasCode(r.duplicates...) {
		log.Info("Portal reports the document may already exist, looking it up", "codes", resp.ErrorCodes())
		lookup := r.lookup(ctx, company, payload)
		warnings = append(warnings, ewaybill.Warning{
			Message:     fmt.Sprintf(helpMessageFormat, "generated"),
			MessagePost: true,
		})
		if lookup.DataString(r.nameKey) != "" {
			resp = &ewaybill.Response{Data: lookup.Data, Error: resp.WithoutCodes(r.duplicates...)}
		} else if len(lookup.Error) > 0 {
			log.Warn("Lookup after duplicate did not recover the document", "codes", lookup.ErrorCodes())
		}
	}

	name := resp.DataString(r.nameKey)
	if len(resp.WithoutCodes(ewaybill.CodeNoCredit)) > 0 || name == "" {
		entries := resp.Error
		if len(entries) == 0 {
			entries = []ewaybill.RemoteError{{Message: missingNameMessage}}
		}
		rejection := &ewaybill.Error{Kind: ewaybill.KindRemoteRejection, Entries: entries, Warnings: warnings}
		log.Warn("Portal rejected e-way bill", "codes", rejection.Codes())
		return nil, rejection
	}

	date, err := ewaybill.IndianTimeToUTC(resp.DataString(r.dateKey), r.dateLayout)
	if err != nil || date == nil {
		log.Warn("Generation date missing or unreadable, using current time", "value", resp.DataString(r.dateKey), "error", err)
		now := c.now().UTC()
		date = &now
	}
	expiry, err := ewaybill.IndianTimeToUTC(resp.DataString(r.expiryKey), r.dateLayout)
	if err != nil {
		log.Warn("Expiry date unreadable", "value", resp.DataString(r.expiryKey), "error", err)
		expiry = nil
	}

	log.Info("E-way bill generated", "name", name)
	return &ewaybill.Submission{
		Name:     name,
		Date:     *date,
		Expiry:   expiry,
		Alert:    resp.DataString("alert"),
		Response: resp,
		Warnings: warnings,
	}, nil
}

func (c *Client) buyCreditsMessage() string {
	return "You have insufficient credits to send this document! Please buy more credits and retry: " + c.buyCreditsURL
}
