package channel

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// NewEnvelope encodes payload into a fresh envelope.
func NewEnvelope(action Action, payload interface{}) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Action: action}
	if payload == nil {
		return env, nil
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", action, err)
	}
	env.Payload = raw
	return env, nil
}

// Decode unmarshals the envelope payload into out.
func (e Envelope) Decode(out interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Action)
	}
	if err := sonic.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Action, err)
	}
	return nil
}

// Marshal encodes a whole envelope.
func Marshal(e Envelope) ([]byte, error) {
	return sonic.Marshal(e)
}

// Unmarshal decodes a whole envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := sonic.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if e.Action == "" {
		return Envelope{}, fmt.Errorf("malformed envelope: missing action")
	}
	return e, nil
}
