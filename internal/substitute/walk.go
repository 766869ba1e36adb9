package substitute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// walkJSON re-serializes raw JSON, applying resolve to every string leaf
// value (never to object keys) while preserving object key order exactly as
// it appeared in the input. encoding/json.Marshal of a decoded
// map[string]interface{} would sort keys alphabetically, which is
// unacceptable for fields whose declaration order is part of their
// semantics (features, containerEnv, remoteEnv); walking tokens directly
// avoids ever materializing such a map.
func walkJSON(data []byte, resolve func(string) string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var buf bytes.Buffer
	if err := transform(dec, &buf, resolve); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func transform(dec *json.Decoder, buf *bytes.Buffer, resolve func(string) string) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			buf.WriteByte('{')
			first := true
			for dec.More() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("substitute: expected string object key, got %v", keyTok)
				}
				kb, err := json.Marshal(key)
				if err != nil {
					return err
				}
				buf.Write(kb)
				buf.WriteByte(':')
				if err := transform(dec, buf, resolve); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return err
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			first := true
			for dec.More() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				if err := transform(dec, buf, resolve); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return err
			}
			buf.WriteByte(']')
		default:
			return fmt.Errorf("substitute: unexpected delimiter %v", t)
		}
	case string:
		sb, err := json.Marshal(resolve(t))
		if err != nil {
			return err
		}
		buf.Write(sb)
	case json.Number:
		buf.WriteString(t.String())
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("substitute: unsupported token type %T", tok)
	}
	return nil
}
