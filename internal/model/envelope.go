package model

import (
	"encoding/json"
	"fmt"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the wrapper around every metric endpoint response. Only a
// Status of "success" indicates usable Data.
type Envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OK reports whether the envelope carries a success status.
func (e Envelope) OK() bool {
	return e.Status == StatusSuccess
}

// EnvelopeError is returned when a MetricSource answered with a well-formed
// envelope whose status is not "success".
type EnvelopeError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: envelope status %q", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: envelope status %q: %s", e.Endpoint, e.Status, e.Message)
}
