package eventbus

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/amirasaad/presale/pkg/domain/events"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	envBytes, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return envBytes, nil
}

// decodeEnvelope rebuilds the concrete event value carried by raw.
func decodeEnvelope(raw []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	ptr := constructor()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	// Handlers always receive value events, whatever the transport.
	if v := reflect.ValueOf(ptr); v.Kind() == reflect.Pointer {
		if evt, ok := v.Elem().Interface().(events.Event); ok {
			return evt, nil
		}
	}
	return ptr, nil
}
