// Package protocol defines the text frame envelope and typed payloads
// exchanged with clients over the bidirectional channel.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame indicates bytes that do not parse as a frame object.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMissingType indicates a frame without a non-empty string type.
	ErrMissingType = errors.New("frame missing type")
)

// Frame is the wire envelope. Type is required. ID is the correlation token:
// replies echo the request's ID, unsolicited server events omit it. Payload
// shape depends on Type and is validated by the dispatcher, not here.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses one text frame. It validates envelope shape only.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return nil, ErrMissingType
	}
	return &f, nil
}

// Encode serializes a frame for the transport.
func Encode(f *Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return data, nil
}

// NewFrame builds a frame with the given payload marshaled in place. A nil
// payload produces a frame without a payload field.
func NewFrame(frameType, id string, payload any) (*Frame, error) {
	f := &Frame{Type: frameType, ID: id}
	if payload == nil {
		return f, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", frameType, err)
	}
	f.Payload = raw
	return f, nil
}

// DecodePayload unmarshals the frame payload into v. An absent payload
// decodes as the zero value so optional payloads need no special casing.
func (f *Frame) DecodePayload(v any) error {
	if len(f.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", f.Type, err)
	}
	return nil
}
