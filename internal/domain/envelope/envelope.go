package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrUnrecognized is returned by Decode for type/method pairs the relay does not handle
var ErrUnrecognized = errors.New("unrecognized envelope")

// Type is the top-level envelope discriminant
type Type string

// Method selects the operation within a Type
type Method string

const (
	TypeMessage Type = "message"
	TypeView    Type = "view"
)

const (
	MethodSubscribe   Method = "subscribe"
	MethodUnsubscribe Method = "unsubscribe"
	MethodPublish     Method = "publish"
	MethodSet         Method = "set"
)

// Envelope is the structured message exchanged between host and widgets
type Envelope struct {
	Type    Type            `json:"type"`
	Method  Method          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Parse decodes a raw frame into an Envelope
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return env, nil
}

// Marshal encodes an Envelope for delivery
func Marshal(env Envelope) ([]byte, error) {
	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

type publishPayload struct {
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message,omitempty"`
}

// NewPublish builds the envelope delivered to each subscriber of topic
func NewPublish(topic string, message json.RawMessage) Envelope {
	return Envelope{
		Type:    TypeMessage,
		Method:  MethodPublish,
		Payload: mustPayload(publishPayload{Topic: topic, Message: message}),
	}
}

// FrameSize is the payload sent to host observers when a frame is resized
type FrameSize struct {
	Frame  string  `json:"frame"`
	Page   string  `json:"page,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// NewFrameSize builds a view/set envelope describing a frame's rendered size
func NewFrameSize(size FrameSize) Envelope {
	return Envelope{
		Type:    TypeView,
		Method:  MethodSet,
		Payload: mustPayload(size),
	}
}

// mustPayload marshals payload structs whose fields are all encodable
func mustPayload(v any) json.RawMessage {
	data, err := sonic.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("envelope: payload not encodable: %v", err))
	}
	return data
}
