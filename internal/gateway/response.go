package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response represents an HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// apiMessage is the error body shape returned by the API.
type apiMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// asAPIError turns a non-2xx response into an *APIError, pulling the
// server message out of the body when one is present.
func asAPIError(resp *Response) *APIError {
	var body apiMessage
	_ = json.Unmarshal(resp.Body, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
