package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/fixrun/internal/ir"
)

// ErrCodeTestFailed is the error code of a run with failing assertions.
const ErrCodeTestFailed = "E_TEST_FAILED"

// Response is the JSON envelope shared by every machine readable output.
type Response struct {
	Status string         `json:"status"`          // "ok" or "error"
	Data   any            `json:"data,omitempty"`  // success payload
	Error  *ResponseError `json:"error,omitempty"` // error details
}

// ResponseError is the error part of a Response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON encodes a response with two-space indentation.
func WriteJSON(w io.Writer, resp Response) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// JSON writes the run summary as one envelope when the run finishes.
type JSON struct {
	W io.Writer
}

// NewJSON creates a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{W: w}
}

// Describe implements Reporter.
func (j *JSON) Describe(ir.FixturePath) Group { return nopGroup{} }

// Finish implements Reporter.
func (j *JSON) Finish(summary *ir.RunSummary) error {
	resp := Response{Status: "ok", Data: summary}
	if !summary.OK() {
		resp.Status = "error"
		resp.Error = &ResponseError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d assertion(s) failed", summary.Failed),
		}
	}
	if err := WriteJSON(j.W, resp); err != nil {
		return fmt.Errorf("json report: %w", err)
	}
	return nil
}
