package envelope

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/bytedance/sonic"
)

// Command is the decoded form of an inbound envelope.
// The set of variants is closed: Subscribe, Unsubscribe, Publish and Resize.
type Command interface {
	isCommand()
}

// Subscribe adds the sender to a topic
type Subscribe struct {
	Topic string
}

// Unsubscribe removes the sender from a topic
type Unsubscribe struct {
	Topic string
}

// Publish forwards Message to every other subscriber of Topic
type Publish struct {
	Topic   string
	Message json.RawMessage
}

// Resize sets the rendered size of the sender's frame.
// Nil dimensions are left unchanged.
type Resize struct {
	Width  *float64
	Height *float64
}

func (Subscribe) isCommand()   {}
func (Unsubscribe) isCommand() {}
func (Publish) isCommand()     {}
func (Resize) isCommand()      {}

// Decode maps an envelope onto its Command variant by exact type/method match
func Decode(env Envelope) (Command, error) {
	fields := payloadFields(env.Payload)

	switch env.Type {
	case TypeMessage:
		switch env.Method {
		case MethodSubscribe:
			return Subscribe{Topic: topicField(fields)}, nil
		case MethodUnsubscribe:
			return Unsubscribe{Topic: topicField(fields)}, nil
		case MethodPublish:
			return Publish{
				Topic:   topicField(fields),
				Message: fields["message"],
			}, nil
		}
	case TypeView:
		if env.Method == MethodSet {
			return Resize{
				Width:  numberField(fields, "width"),
				Height: numberField(fields, "height"),
			}, nil
		}
	}

	return nil, ErrUnrecognized
}

// payloadFields splits an object payload into raw fields.
// Anything that is not an object yields no fields.
func payloadFields(payload json.RawMessage) map[string]json.RawMessage {
	fields := map[string]json.RawMessage{}
	if len(payload) == 0 {
		return fields
	}
	if err := sonic.Unmarshal(payload, &fields); err != nil {
		return map[string]json.RawMessage{}
	}
	return fields
}

// topicField reads the topic key. Number and boolean topics key by their
// text form so 5 and 6 stay distinct; anything else reads as "".
func topicField(fields map[string]json.RawMessage) string {
	raw, ok := fields["topic"]
	if !ok {
		return ""
	}

	var v any
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	}
	return ""
}

// formatNumber renders n the way a browser stringifies a number key
func formatNumber(n float64) string {
	if math.Abs(n) >= 1e21 {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var n *float64
	if err := sonic.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return n
}
