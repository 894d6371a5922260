package loader

import "testing"

func TestParseLocationSimple(t *testing.T) {
	loc, err := parseLocation("validator.ak:12:4")
	if err != nil {
		t.Fatalf("parseLocation: %v", err)
	}
	if loc.File != "validator.ak" || loc.Line != 12 || loc.Column != 4 {
		t.Errorf("parseLocation = %+v, want {validator.ak 12 4}", loc)
	}
}

func TestParseLocationFileContainingColons(t *testing.T) {
	loc, err := parseLocation("C:/scripts/validator.ak:7:2")
	if err != nil {
		t.Fatalf("parseLocation: %v", err)
	}
	if loc.File != "C:/scripts/validator.ak" || loc.Line != 7 || loc.Column != 2 {
		t.Errorf("parseLocation = %+v, want file to retain its embedded colon", loc)
	}
}

func TestParseLocationRejectsTooFewFields(t *testing.T) {
	if _, err := parseLocation("justoneline"); err == nil {
		t.Error("parseLocation(\"justoneline\"): want error, got nil")
	}
}

func TestParseExplicitSourceMap(t *testing.T) {
	sm, err := parseExplicitSourceMap(map[string]string{
		"0": "a.ak:1:1",
		"3": "a.ak:2:5",
	})
	if err != nil {
		t.Fatalf("parseExplicitSourceMap: %v", err)
	}
	if sm.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sm.Len())
	}
	loc, ok := sm.Lookup(3)
	if !ok || loc.Line != 2 || loc.Column != 5 {
		t.Errorf("Lookup(3) = %+v, want line 2 column 5", loc)
	}
}

func TestParseExplicitSourceMapRejectsNonIntegerKey(t *testing.T) {
	if _, err := parseExplicitSourceMap(map[string]string{"abc": "a.ak:1:1"}); err == nil {
		t.Error("parseExplicitSourceMap with a non-integer key: want error, got nil")
	}
}

func TestUnwrapCBORBytesIfPresentPlainPayload(t *testing.T) {
	// 0x00 0x01 starts with a flat term tag, not a CBOR byte-string head
	// (major type 2 would need the top 3 bits to be 010).
	raw := []byte{0x00, 0x01}
	got, err := unwrapCBORBytesIfPresent(raw)
	if err != nil {
		t.Fatalf("unwrapCBORBytesIfPresent: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("unwrapCBORBytesIfPresent(plain) = %v, want unchanged %v", got, raw)
	}
}

func TestUnwrapCBORBytesIfPresentWrapped(t *testing.T) {
	inner := []byte{0xde, 0xad, 0xbe, 0xef}
	wrapped := append([]byte{0x44}, inner...) // major 2, length 4
	got, err := unwrapCBORBytesIfPresent(wrapped)
	if err != nil {
		t.Fatalf("unwrapCBORBytesIfPresent: %v", err)
	}
	if string(got) != string(inner) {
		t.Errorf("unwrapCBORBytesIfPresent(wrapped) = %v, want %v", got, inner)
	}
}

func TestParseJSONMissingCompiledCode(t *testing.T) {
	if _, _, err := ParseJSON([]byte(`{}`)); err == nil {
		t.Error("ParseJSON with no compiledCode: want error, got nil")
	}
}

func TestParseJSONInvalidHex(t *testing.T) {
	if _, _, err := ParseJSON([]byte(`{"compiledCode":"not-hex"}`)); err == nil {
		t.Error("ParseJSON with non-hex compiledCode: want error, got nil")
	}
}
