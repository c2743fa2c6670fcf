package core

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestBuildEnvelope_Shape(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	envelope, err := BuildEnvelope("evt_1", "payment.succeeded", createdAt, map[string]any{
		"amount":   4200,
		"currency": "usd",
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}

	if envelope.ID != "evt_1" {
		t.Fatalf("expected id evt_1, got %q", envelope.ID)
	}
	if envelope.Object != "event" {
		t.Fatalf("expected object event, got %q", envelope.Object)
	}
	if envelope.Type != "payment.succeeded" {
		t.Fatalf("expected type payment.succeeded, got %q", envelope.Type)
	}
	if envelope.Created != createdAt.Unix() {
		t.Fatalf("expected created %d, got %d", createdAt.Unix(), envelope.Created)
	}
	if envelope.Data.Object["currency"] != "usd" {
		t.Fatalf("expected resource data under data.object")
	}
}

func TestBuildEnvelope_WireFormat(t *testing.T) {
	envelope, err := BuildEnvelope("evt_2", "filing.accepted", time.Unix(1767000000, 0), map[string]any{
		"filing_id": "fil_9",
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	payload, err := envelope.Encode()
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal wire payload: %v", err)
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in wire payload")
	}
	object, ok := data["object"].(map[string]any)
	if !ok {
		t.Fatalf("expected data.object in wire payload")
	}
	if object["filing_id"] != "fil_9" {
		t.Fatalf("expected resource fields under data.object, got %#v", object)
	}
	if decoded["created"] != float64(1767000000) {
		t.Fatalf("expected created as unix seconds, got %v", decoded["created"])
	}
}

func TestBuildEnvelope_EncodeIsDeterministic(t *testing.T) {
	envelope, err := BuildEnvelope("evt_3", "document.verified", time.Unix(1767000000, 0), map[string]any{
		"document_id": "doc_1",
		"pages":       3,
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}

	first, err := envelope.Encode()
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	second, err := envelope.Encode()
	if err != nil {
		t.Fatalf("encode envelope again: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical bytes across encodes")
	}
}

func TestBuildEnvelope_RequiresIDAndType(t *testing.T) {
	if _, err := BuildEnvelope("", "payment.succeeded", time.Now(), nil); err == nil {
		t.Fatalf("expected error for missing event id")
	}
	if _, err := BuildEnvelope("evt_1", " ", time.Now(), nil); err == nil {
		t.Fatalf("expected error for missing event type")
	}
}
