package iap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"3tcapital/ms_ewaybill_core/internal/core/ewaybill"
)

// HTTPClient interface allows using both standard and traced HTTP clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const accessErrorMessage = "Unable to connect to the online E-invoice service.The web service may be temporary down. Please try again in a moment."

// Connector posts JSON-RPC calls to the IAP proxy in front of the government
// portals. It never returns a Go error: transport failures come back as an
// access_error response so callers handle every outcome the same way.
type Connector struct {
	endpoint     string
	accountToken string
	dbUUID       string
	client       HTTPClient
	log          *slog.Logger
	breaker      *Breaker
	limiter      *Limiter
}

// ConnectorOption configures optional connector behaviour.
type ConnectorOption func(*Connector)

// WithBreaker fails calls fast while the proxy keeps failing.
func WithBreaker(b *Breaker) ConnectorOption {
	return func(c *Connector) { c.breaker = b }
}

// WithLimiter bounds concurrent calls to the proxy.
func WithLimiter(l *Limiter) ConnectorOption {
	return func(c *Connector) { c.limiter = l }
}

// NewConnector creates a connector for the given IAP endpoint.
func NewConnector(endpoint, accountToken, dbUUID string, client HTTPClient, log *slog.Logger, opts ...ConnectorOption) *Connector {
	c := &Connector{
		endpoint:     endpoint,
		accountToken: accountToken,
		dbUUID:       dbUUID,
		client:       client,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      string         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// Connect calls urlPath with params on behalf of the company identified by
// gstin and username. params is not modified.
func (c *Connector) Connect(ctx context.Context, gstin, username, urlPath string, params map[string]any) *ewaybill.Response {
	merged := make(map[string]any, len(params)+4)
	for k, v := range params {
		merged[k] = v
	}
	merged["account_token"] = c.accountToken
	merged["dbuuid"] = c.dbUUID
	merged["username"] = username
	merged["gstin"] = gstin

	resp, err := c.guardedCall(ctx, urlPath, merged)
	if err != nil {
		c.log.Error("IAP call failed", "path", urlPath, "gstin", gstin, "error", err)
		return &ewaybill.Response{Error: []ewaybill.RemoteError{{
			Code:    ewaybill.CodeAccessError,
			Message: accessErrorMessage,
		}}}
	}
	return resp
}

func (c *Connector) guardedCall(ctx context.Context, urlPath string, params map[string]any) (*ewaybill.Response, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, err
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("wait for iap slot: %w", err)
		}
		defer c.limiter.Release()
	}

	resp, err := c.call(ctx, urlPath, params)
	// A caller that gave up says nothing about the proxy.
	if c.breaker != nil && !errors.Is(ctx.Err(), context.Canceled) {
		c.breaker.Record(err)
	}
	return resp, err
}

func (c *Connector) call(ctx context.Context, urlPath string, params map[string]any) (*ewaybill.Response, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + urlPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(raw))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if envelope.Error != nil {
		msg := envelope.Error.Data.Message
		if msg == "" {
			msg = envelope.Error.Message
		}
		return nil, fmt.Errorf("iap error %s: %s", envelope.Error.Data.Name, msg)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return &ewaybill.Response{}, nil
	}
	return ewaybill.DecodeResponse(envelope.Result)
}
