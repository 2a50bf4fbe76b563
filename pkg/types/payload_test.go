package types

import (
	"testing"
)

func TestPayloadMapRoundTrip(t *testing.T) {
	payload := PayloadMap{"taxon_id": float64(9606), "scientific_name": "Homo sapiens"}

	value, err := payload.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}

	var decoded PayloadMap
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if decoded["scientific_name"] != "Homo sapiens" {
		t.Fatalf("unexpected decoded payload %v", decoded)
	}
	if decoded["taxon_id"] != float64(9606) {
		t.Fatalf("unexpected decoded taxon id %v", decoded["taxon_id"])
	}
}

func TestPayloadMapNilHandling(t *testing.T) {
	var payload PayloadMap

	value, err := payload.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil driver value for nil map, got %v", value)
	}

	var decoded PayloadMap
	if err := decoded.Scan(nil); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil map after scanning nil, got %v", decoded)
	}
}

func TestPayloadMapScanRejectsUnknownType(t *testing.T) {
	var decoded PayloadMap
	if err := decoded.Scan(42); err == nil {
		t.Fatal("expected error scanning non-bytes value")
	}
}
