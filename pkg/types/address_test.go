package types

import (
	"testing"
)

func TestAddressValueScanRoundTrip(t *testing.T) {
	line2 := "Apt 4"
	addr := Address{
		Line1:      "1 Main St",
		Line2:      &line2,
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
	}

	value, err := addr.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}

	var decoded Address
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if decoded.Line1 != addr.Line1 || decoded.City != addr.City {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.Line2 == nil || *decoded.Line2 != line2 {
		t.Fatalf("line2 not preserved: %+v", decoded.Line2)
	}
}

func TestAddressValueRequiresLine1(t *testing.T) {
	if _, err := (Address{City: "X"}).Value(); err == nil {
		t.Fatal("expected error for missing line1")
	}
}

func TestAddressScanNil(t *testing.T) {
	addr := Address{Line1: "old"}
	if err := addr.Scan(nil); err != nil {
		t.Fatalf("scan nil failed: %v", err)
	}
	if addr.Line1 != "" {
		t.Fatalf("expected zeroed address, got %+v", addr)
	}
}
