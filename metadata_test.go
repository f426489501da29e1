package fleet

import "testing"

func TestValueRoundTrip(t *testing.T) {
	if v, ok := StringValue("hi").String(); !ok || v != "hi" {
		t.Fatalf("StringValue round-trip failed: %v %v", v, ok)
	}
	if v, ok := IntValue(42).Int(); !ok || v != 42 {
		t.Fatalf("IntValue round-trip failed: %v %v", v, ok)
	}
	if v, ok := BoolValue(true).Bool(); !ok || !v {
		t.Fatalf("BoolValue round-trip failed: %v %v", v, ok)
	}
	if _, ok := StringValue("hi").Int(); ok {
		t.Fatalf("Int() on a string Value should report ok=false")
	}
}

func TestMetadataCloneIsShallowCopy(t *testing.T) {
	m := Metadata{"k": StringValue("v")}
	clone := m.Clone()
	clone["k"] = StringValue("changed")
	if v, _ := m["k"].String(); v != "v" {
		t.Fatalf("mutating the clone must not affect the original, got %q", v)
	}
}

func TestMetadataCloneNil(t *testing.T) {
	var m Metadata
	if m.Clone() != nil {
		t.Fatalf("cloning a nil Metadata should return nil")
	}
}
