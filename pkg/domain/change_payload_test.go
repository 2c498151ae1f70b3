package domain

import (
	"encoding/json"
	"testing"
)

func TestChangePayloadDefined(t *testing.T) {
	var undefined ChangePayload
	if undefined.Defined() {
		t.Fatalf("zero payload must be undefined")
	}
	if undefined.Raw() != nil {
		t.Fatalf("undefined payload must have nil raw bytes")
	}
	if _, ok := DecodePayload[OrgInventory](undefined); ok {
		t.Fatalf("decoding an undefined payload must fail")
	}
}

func TestChangePayloadClonesInput(t *testing.T) {
	raw := json.RawMessage(`{"water":1}`)
	payload := NewChangePayload(raw)
	raw[2] = 'X'
	inv, ok := DecodePayload[OrgInventory](payload)
	if !ok || inv.Water != 1 {
		t.Fatalf("payload must not alias caller buffer, got %+v ok=%v", inv, ok)
	}
	out := payload.Raw()
	out[0] = '['
	if _, ok := DecodePayload[OrgInventory](payload); !ok {
		t.Fatalf("Raw must return a copy")
	}
}

func TestSnapshotOfRoundTrip(t *testing.T) {
	req := ReplenishmentRequest{ID: "RR-1", Item: ItemBlankets, Status: ReplenishmentStocked}
	payload := SnapshotOf(req)
	got, ok := DecodePayload[ReplenishmentRequest](payload)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if got.ID != req.ID || got.Status != req.Status || got.Item != req.Item {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if _, ok := DecodePayload[int](payload); ok {
		t.Fatalf("decoding into a mismatched type must fail")
	}
}
