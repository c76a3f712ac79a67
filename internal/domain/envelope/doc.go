// Package envelope defines the wire format exchanged between widgets and the relay.
//
// Every message is a JSON envelope with a type/method discriminant and a
// method-specific payload:
//
//	subscribe:    {"type":"message","method":"subscribe",  "payload":{"topic":"chat"}}
//	unsubscribe:  {"type":"message","method":"unsubscribe","payload":{"topic":"chat"}}
//	publish:      {"type":"message","method":"publish",    "payload":{"topic":"chat","message":...}}
//	resize:       {"type":"view",   "method":"set",        "payload":{"width":320,"height":200}}
//
// Decode turns an envelope into one of the Command variants. Payload fields are
// read leniently: a missing, null or mistyped field decodes to its zero value.
// Only an unknown type/method pair is rejected, with ErrUnrecognized.
//
// Example Usage:
//
//	env, err := envelope.Parse(data)
//	cmd, err := envelope.Decode(env)
//	switch c := cmd.(type) {
//	case envelope.Publish:
//		...
//	}
package envelope
