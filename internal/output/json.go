package output

import (
	"encoding/json"
	"errors"
	"io"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// JSONOutput provides structured JSON output helpers.
type JSONOutput struct {
	writer io.Writer
}

// NewJSONOutput creates a new JSON output helper.
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{writer: w}
}

// Write writes a value as pretty-printed JSON.
func (j *JSONOutput) Write(v interface{}) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCompact writes a value as compact JSON (single line).
func (j *JSONOutput) WriteCompact(v interface{}) error {
	enc := json.NewEncoder(j.writer)
	return enc.Encode(v)
}

// WriteArray writes an array of values with newlines between items.
func (j *JSONOutput) WriteArray(items []interface{}) error {
	for _, item := range items {
		if err := j.WriteCompact(item); err != nil {
			return err
		}
	}
	return nil
}

// StatusResponse represents a standard status response.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Hint    string            `json:"hint,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// ListResponse represents a standard list response wrapper.
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

// WriteStatus writes a status response.
func (j *JSONOutput) WriteStatus(status, message string) error {
	return j.Write(StatusResponse{
		Status:  status,
		Message: message,
	})
}

// WriteError writes an error response.
func (j *JSONOutput) WriteError(err error) error {
	resp := ErrorResponse{
		Error: err.Error(),
	}

	var coreErr *coreerrors.CoreError
	if errors.As(err, &coreErr) {
		resp.Code = coreErr.Code
		resp.Message = coreErr.Message
		resp.Hint = coreErr.Hint
		resp.Context = coreErr.Context
	}

	return j.Write(resp)
}

// WriteList writes a list response.
func (j *JSONOutput) WriteList(items interface{}, count int) error {
	return j.Write(ListResponse{
		Items: items,
		Count: count,
	})
}
