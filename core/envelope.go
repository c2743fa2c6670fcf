package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Envelope is the canonical wire structure sent for every event. The
// data.object indirection gives consumers a stable parsing path regardless
// of event type.
type Envelope struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Type    string       `json:"type"`
	Created int64        `json:"created"`
	Data    EnvelopeData `json:"data"`
}

type EnvelopeData struct {
	Object map[string]any `json:"object"`
}

func BuildEnvelope(eventID string, eventType string, createdAt time.Time, resourceData map[string]any) (Envelope, error) {
	eventID = strings.TrimSpace(eventID)
	eventType = strings.TrimSpace(eventType)
	if eventID == "" {
		return Envelope{}, fmt.Errorf("core: envelope event id is required")
	}
	if eventType == "" {
		return Envelope{}, fmt.Errorf("core: envelope event type is required")
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return Envelope{
		ID:      eventID,
		Object:  "event",
		Type:    eventType,
		Created: createdAt.UTC().Unix(),
		Data: EnvelopeData{
			Object: cloneFields(resourceData),
		},
	}, nil
}

// Encode marshals the envelope once. Callers freeze the returned bytes on
// the delivery record; retries re-sign and resend these exact bytes.
func (e Envelope) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("core: envelope encode failed: %w", err)
	}
	return payload, nil
}
