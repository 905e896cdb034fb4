package ewaybill

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
)

// Field is one key/value pair of a Payload.
type Field struct {
	Key   string
	Value any
}

// Payload is a JSON object that keeps insertion order. Stored content must
// reproduce the exact bytes of earlier submissions, so key order matters.
type Payload []Field

// Get returns the value for key.
func (p Payload) Get(key string) (any, bool) {
	for _, f := range p {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value for key when it is a string.
func (p Payload) String(key string) string {
	v, _ := p.Get(key)
	s, _ := v.(string)
	return s
}

// Set replaces key in place or appends it.
func (p *Payload) Set(key string, value any) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Field{Key: key, Value: value})
}

// Extend appends every field of other, overriding keys already present.
func (p *Payload) Extend(other Payload) {
	for _, f := range other {
		p.Set(f.Key, f.Value)
	}
}

// MarshalJSON writes compact JSON in field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, p, ",", ":", false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping key order and exact numbers.
func (p *Payload) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	obj, ok := v.(Payload)
	if !ok {
		return errors.New("payload: expected JSON object")
	}
	*p = obj
	return nil
}

// EncodeContent renders the payload the way stored content has always been
// produced: ", " and ": " separators, non-ASCII escaped, then base64.
func EncodeContent(p Payload) (string, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, p, ", ", ": ", true); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeContent is the inverse of EncodeContent.
func DecodeContent(content string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decode base64 content: %w", err)
	}
	var p Payload
	if err := p.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("decode json content: %w", err)
	}
	return p, nil
}

func encodeValue(buf *bytes.Buffer, v any, itemSep, keySep string, asciiOnly bool) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case Payload:
		buf.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				buf.WriteString(itemSep)
			}
			writeString(buf, f.Key, asciiOnly)
			buf.WriteString(keySep)
			if err := encodeValue(buf, f.Value, itemSep, keySep, asciiOnly); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []Payload:
		items := make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return encodeValue(buf, items, itemSep, keySep, asciiOnly)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteString(itemSep)
			}
			if err := encodeValue(buf, item, itemSep, keySep, asciiOnly); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case string:
		writeString(buf, val, asciiOnly)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		buf.WriteString(val.String())
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	case json.Marshaler:
		b, err := val.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	default:
		return fmt.Errorf("payload: unsupported value type %T", v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string, asciiOnly bool) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20 || (asciiOnly && r >= 0x7f):
			if r > 0xffff {
				hi, lo := utf16.EncodeRune(r)
				writeEscape(buf, hi)
				writeEscape(buf, lo)
				continue
			}
			writeEscape(buf, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(r>>12)&0xf])
	buf.WriteByte(hexDigits[(r>>8)&0xf])
	buf.WriteByte(hexDigits[(r>>4)&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Payload{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("payload: unexpected key token %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("payload: unexpected delimiter %v", t)
	case nil, string, bool, json.Number:
		return t, nil
	}
	return nil, fmt.Errorf("payload: unexpected token %v", tok)
}
