package ewaybill

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RemoteError is one entry of the "error" list returned by the service.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts codes sent either as strings or as numbers.
func (r *RemoteError) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Message = raw.Message
	r.Code = ""
	code := bytes.TrimSpace(raw.Code)
	if len(code) == 0 || bytes.Equal(code, []byte("null")) {
		return nil
	}
	if code[0] == '"' {
		return json.Unmarshal(code, &r.Code)
	}
	r.Code = string(code)
	return nil
}

// Warning is an informational note attached to a response. MessagePost
// warnings go to the document's message log, the others to its error field.
type Warning struct {
	Message     string `json:"message"`
	MessagePost bool   `json:"message_post,omitempty"`
}

// Response is the normalized body of every IAP call.
type Response struct {
	Data     map[string]any `json:"data,omitempty"`
	Error    []RemoteError  `json:"error,omitempty"`
	Warnings []Warning      `json:"odoo_warning,omitempty"`
}

// DecodeResponse parses a response body keeping numbers exact.
func DecodeResponse(body []byte) (*Response, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// ErrorCodes lists the codes of the response errors.
func (r *Response) ErrorCodes() []string {
	codes := make([]string, 0, len(r.Error))
	for _, e := range r.Error {
		codes = append(codes, e.Code)
	}
	return codes
}

// HasCode reports whether any of codes is present in the error list.
func (r *Response) HasCode(codes ...string) bool {
	for _, e := range r.Error {
		for _, code := range codes {
			if e.Code == code {
				return true
			}
		}
	}
	return false
}

// WithoutCodes returns the error list minus the given codes.
func (r *Response) WithoutCodes(codes ...string) []RemoteError {
	out := make([]RemoteError, 0, len(r.Error))
next:
	for _, e := range r.Error {
		for _, code := range codes {
			if e.Code == code {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// DataString reads a data field as text. Numeric reference numbers are
// returned in their exact decimal form.
func (r *Response) DataString(key string) string {
	if r == nil || r.Data == nil {
		return ""
	}
	switch v := r.Data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// NotConfiguredResponse is returned by best-effort calls made without a token.
func NotConfiguredResponse() *Response {
	return &Response{Error: []RemoteError{{
		Code:    CodeNotConfigured,
		Message: "Unable to send e-Invoice.Create an API user in NIC portal, and set it using the top menu: Configuration > Settings.",
	}}}
}
