package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/agentsync/api/transport"
)

// Client talks to the sync server over fasthttp.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

// NewClient builds a client for baseURL. dial may be nil to use TCP.
func NewClient(baseURL, token string, timeout time.Duration, dial fasthttp.DialFunc) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:         "syncctl",
			Dial:         dial,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d %s: %s", e.Status, e.Code, e.Message)
}

// Do sends body to path and decodes the envelope. The envelope is returned
// for 2xx answers only.
func (c *Client) Do(method, path string, body interface{}) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, err
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out.Envelope); err != nil {
		return nil, fmt.Errorf("unreadable answer (%d): %w", resp.StatusCode(), err)
	}
	out.StatusCode = resp.StatusCode()

	if out.StatusCode >= fasthttp.StatusBadRequest {
		return nil, &APIError{Status: out.StatusCode, Code: out.Envelope.Code, Message: errorText(out.Envelope.Error)}
	}
	return &out, nil
}

// Response is a decoded server answer whose data is kept raw.
type Response struct {
	StatusCode int
	Envelope   rawEnvelope
}

type rawEnvelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
	Meta   json.RawMessage `json:"meta,omitempty"`
}

// Meta decodes the batch summary.
func (r *Response) Meta() (transport.BatchMeta, error) {
	var meta transport.BatchMeta
	if len(r.Envelope.Meta) == 0 {
		return meta, nil
	}
	err := json.Unmarshal(r.Envelope.Meta, &meta)
	return meta, err
}

// errorText unquotes plain string errors and keeps structured ones as JSON.
func errorText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}
