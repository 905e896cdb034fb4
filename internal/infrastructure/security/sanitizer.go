package security

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

const redactedValue = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

// Field names containing any of these fragments are redacted. This covers
// the IAP account_token, the portal password and the AuthToken it returns.
var sensitiveFragments = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"private_key",
	"credential",
	"auth",
}

// Field names redacted only on exact (case-insensitive) match.
var sensitiveNames = map[string]bool{
	"key": true,
	"sek": true, // session encryption key handed out with portal tokens
}

// IsSensitive reports whether a JSON field or query parameter must be redacted.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	if sensitiveNames[lower] {
		return true
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// SanitizeHeaders flattens headers into a map with credentials redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// SanitizeBody returns a JSON document safe to log or store. JSON bodies have
// sensitive fields redacted, text is wrapped and binary is base64 encoded.
// Bodies whose redacted form is longer than maxSize are replaced by a
// truncated preview of that form; oversized text is dropped.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	if isGzip(body) {
		decompressed, err := gunzip(body)
		if err != nil {
			return wrap(map[string]any{
				"_binary": true,
				"_format": "gzip-compressed (decompression failed)",
				"_size":   len(body),
				"_base64": base64.StdEncoding.EncodeToString(body),
			})
		}
		body = decompressed
	}

	if !utf8.Valid(body) {
		return wrap(map[string]any{
			"_binary": true,
			"_format": "binary (non-UTF8)",
			"_size":   len(body),
			"_base64": base64.StdEncoding.EncodeToString(body),
		})
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if maxSize > 0 && len(body) > maxSize {
			// Unparsed text may hold credentials; keep only its size.
			return wrap(map[string]any{"_truncated": true, "_size": len(body), "_format": "text"})
		}
		return wrap(map[string]any{"_raw": string(body), "_format": "text"})
	}

	result, err := json.Marshal(redact(data))
	if err != nil {
		return wrap(map[string]any{"_truncated": true, "_size": len(body), "_format": "text"})
	}
	if maxSize > 0 && len(result) > maxSize {
		return wrap(map[string]any{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   string(result[:maxSize]),
		})
	}
	return result
}

func redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			if IsSensitive(key) {
				out[key] = redactedValue
				continue
			}
			out[key] = redact(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redact(inner)
		}
		return out
	default:
		return val
	}
}

// SanitizeURL redacts sensitive query parameter values while keeping the
// parameter order and the rest of the URL untouched.
func SanitizeURL(rawURL string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found || query == "" {
		return rawURL
	}

	fragment := ""
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query, fragment = query[:i], query[i:]
	}

	params := strings.Split(query, "&")
	for i, param := range params {
		name, _, hasValue := strings.Cut(param, "=")
		if hasValue && IsSensitive(name) {
			params[i] = name + "=" + redactedValue
		}
	}
	return base + "?" + strings.Join(params, "&") + fragment
}

func isGzip(body []byte) bool {
	return len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func wrap(v map[string]any) json.RawMessage {
	result, _ := json.Marshal(v)
	return result
}
