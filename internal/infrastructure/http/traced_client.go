package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"3tcapital/ms_ewaybill_core/internal/core/audit"
	ctxutil "3tcapital/ms_ewaybill_core/internal/infrastructure/context"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/security"
)

// TracedClient wraps an HTTP client to log every provider call and persist
// a sanitized audit record of it.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	provider     string
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int
	pending      sync.WaitGroup
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int // 0 = 50
}

// NewTracedClient creates a traced client with its own pooled transport.
func NewTracedClient(cfg *TracedClientConfig, log *slog.Logger, auditRepo audit.Repository, provider string) *TracedClient {
	maxBody := cfg.MaxBodySize
	if maxBody == 0 {
		maxBody = 100 * 1024
	}
	maxConns := cfg.MaxConnsPerHost
	if maxConns == 0 {
		maxConns = 50
	}

	// The portals are slow to answer; never give up on headers before the client timeout does.
	headerTimeout := cfg.Timeout
	if headerTimeout < 60*time.Second {
		headerTimeout = 60 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &TracedClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log:          log,
		auditRepo:    auditRepo,
		provider:     provider,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  maxBody,
	}
}

// Do executes req, logging it and recording an audit entry in the background.
// Bodies are buffered so both the transport and the caller can read them.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	call := c.newCall(ctx, req)
	start := time.Now()

	if call.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", call.CorrelationID)
	}

	var requestBody []byte
	if req.Body != nil {
		var err error
		requestBody, err = io.ReadAll(req.Body)
		if err != nil {
			c.log.Error("failed to read request body for tracing", "error", err, "correlation_id", call.CorrelationID)
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}
	c.logRequest(call, requestBody)

	resp, err := c.client.Do(req)
	duration := time.Since(start)

	var responseBody []byte
	if resp != nil && resp.Body != nil {
		responseBody, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(responseBody))
	}
	c.logResponse(call, resp, err, duration, responseBody)

	if !c.auditEnabled || c.auditRepo == nil {
		return resp, err
	}

	call.DurationMs = duration.Milliseconds()
	call.RequestHeaders = security.SanitizeHeaders(req.Header)
	call.RequestBody = security.SanitizeBody(requestBody, c.maxBodySize)
	if resp != nil {
		status := resp.StatusCode
		call.ResponseStatus = &status
		call.ResponseHeaders = security.SanitizeHeaders(resp.Header)
		call.ResponseBody = security.SanitizeBody(responseBody, c.maxBodySize)
	}
	if err != nil {
		call.ErrorMessage = err.Error()
	}

	// The inbound request may finish before the insert does, so the write
	// runs on its own context.
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("panic while persisting provider call", "panic", r, "correlation_id", call.CorrelationID, "operation", call.Operation)
			}
		}()

		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.auditRepo.Save(saveCtx, call); err != nil {
			c.log.Error("failed to persist provider call",
				"error", err,
				"correlation_id", call.CorrelationID,
				"provider", c.provider,
				"operation", call.Operation,
			)
		}
	}()

	return resp, err
}

// Wait blocks until pending audit writes finish or ctx is done.
func (c *TracedClient) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client returns the underlying HTTP client.
func (c *TracedClient) Client() *http.Client {
	return c.client
}

func (c *TracedClient) newCall(ctx context.Context, req *http.Request) audit.ProviderCall {
	call := audit.ProviderCall{
		CorrelationID: ctxutil.GetCorrelationID(ctx),
		Provider:      c.provider,
		Operation:     c.extractOperation(req),
		RequestMethod: req.Method,
		RequestURL:    security.SanitizeURL(req.URL.String()),
	}
	if id, ok := ctxutil.GetEwaybillID(ctx); ok {
		call.EwaybillID = &id
	}
	if call.CorrelationID == "" {
		call.CorrelationID = fmt.Sprintf("%s-%d", c.provider, time.Now().UnixNano())
	}
	return call
}

func (c *TracedClient) logRequest(call audit.ProviderCall, body []byte) {
	attrs := []any{
		"correlation_id", call.CorrelationID,
		"provider", c.provider,
		"operation", call.Operation,
		"method", call.RequestMethod,
		"url", call.RequestURL,
	}
	if call.EwaybillID != nil {
		attrs = append(attrs, "ewaybill_id", *call.EwaybillID)
	}
	if c.logReqBody && len(body) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}
	c.log.Info("provider_request", attrs...)
}

func (c *TracedClient) logResponse(call audit.ProviderCall, resp *http.Response, err error, duration time.Duration, body []byte) {
	attrs := []any{
		"correlation_id", call.CorrelationID,
		"provider", c.provider,
		"operation", call.Operation,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("provider_request_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", resp.StatusCode, "response_size_bytes", len(body))
	if c.logRespBody && len(body) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error("provider_response", attrs...)
	case resp.StatusCode >= 400:
		c.log.Warn("provider_response", attrs...)
	default:
		c.log.Info("provider_response", attrs...)
	}
}

// extractOperation names the call after the last path segment, e.g.
// "generate_ewaybill_by_irn" for the IAP generate endpoint.
func (c *TracedClient) extractOperation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return fmt.Sprintf("%s_%s", req.Method, c.provider)
}
