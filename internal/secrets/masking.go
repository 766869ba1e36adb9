package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
)

const maskString = "****"

var (
	errNotAnObjectKey  = errors.New("secrets: expected string object key")
	errUnexpectedDelim = errors.New("secrets: unexpected JSON delimiter")
)

// Redactor maintains an index of substrings to mask in any text it
// processes. It is idempotent: masking already-masked text is a no-op,
// since the mask itself never reappears in the value index.
type Redactor struct {
	values [][]byte
}

// NewRedactor builds a Redactor from every secret in store. Values are
// sorted longest-first so a secret that is a prefix of another is masked
// independently of it.
func NewRedactor(store *Store) *Redactor {
	secrets := store.Secrets()
	values := make([][]byte, 0, len(secrets))
	for _, s := range secrets {
		if len(s.Value) > 0 {
			values = append(values, s.Value)
		}
	}
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })
	return &Redactor{values: values}
}

// Mask redacts every registered secret value found in s. If s looks like a
// JSON document, only string values are masked (object/array keys are left
// untouched); otherwise the whole text is treated as opaque and masked
// directly.
func (r *Redactor) Mask(s string) string {
	if len(r.values) == 0 {
		return s
	}

	if looksLikeJSON(s) {
		if masked, ok := r.maskJSONValues([]byte(s)); ok {
			return string(masked)
		}
	}

	return string(r.maskBytes([]byte(s)))
}

func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	return trimmed[0] == '{' || trimmed[0] == '['
}

func (r *Redactor) maskBytes(p []byte) []byte {
	masked := p
	for _, value := range r.values {
		masked = bytes.ReplaceAll(masked, value, []byte(maskString))
	}
	return masked
}

// maskJSONValues walks a JSON document, masking only string leaf values,
// and preserves object key order exactly (it never round-trips through a
// decoded map, which encoding/json would re-serialize in sorted key order).
func (r *Redactor) maskJSONValues(data []byte) ([]byte, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var buf bytes.Buffer
	if err := maskTransform(dec, &buf, r); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func maskTransform(dec *json.Decoder, buf *bytes.Buffer, r *Redactor) error {
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
					return errNotAnObjectKey
				}
				kb, err := json.Marshal(key) // keys are never masked
				if err != nil {
					return err
				}
				buf.Write(kb)
				buf.WriteByte(':')
				if err := maskTransform(dec, buf, r); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
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
				if err := maskTransform(dec, buf, r); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			buf.WriteByte(']')
		default:
			return errUnexpectedDelim
		}
	case string:
		masked := string(r.maskBytes([]byte(t)))
		sb, err := json.Marshal(masked)
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
	}
	return nil
}

// MaskingWriter wraps an io.Writer and masks secret values in everything
// written through it. It does not buffer across Write calls, so a secret
// value split across two writes will not be caught; callers piping
// line-buffered process output are expected to write whole lines.
type MaskingWriter struct {
	inner    io.Writer
	redactor *Redactor
}

// NewMaskingWriter returns a writer that redacts every secret in store
// before forwarding to w.
func NewMaskingWriter(w io.Writer, store *Store) *MaskingWriter {
	return &MaskingWriter{inner: w, redactor: NewRedactor(store)}
}

func (w *MaskingWriter) Write(p []byte) (int, error) {
	masked := w.redactor.maskBytes(p)
	if _, err := w.inner.Write(masked); err != nil {
		return 0, err
	}
	return len(p), nil
}

// MaskString redacts every secret in store from s as opaque text (no JSON
// awareness); used for single-line log messages where JSON structure is not
// expected.
func MaskString(s string, store *Store) string {
	r := NewRedactor(store)
	return string(r.maskBytes([]byte(s)))
}
