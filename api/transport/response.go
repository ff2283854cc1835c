package transport

import "encoding/json"

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewPartial wraps a batch where some items did not go through. The HTTP
// status stays 200; clients inspect the per-item outcomes.
func NewPartial(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "partial",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional metadata.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// BatchMeta summarizes a bpartner batch by outcome.
type BatchMeta struct {
	Total    int `json:"total"`
	Synced   int `json:"synced"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
	Buffered int `json:"buffered"`
	Skipped  int `json:"skipped"`
}
