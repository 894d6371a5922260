package loader

import (
	"math/big"
	"testing"
)

func TestCborHeadSmallUint(t *testing.T) {
	major, arg, next, err := cborHead([]byte{0x05}, 0)
	if err != nil {
		t.Fatalf("cborHead: %v", err)
	}
	if major != cborMajorUnsigned || arg != 5 || next != 1 {
		t.Errorf("cborHead(0x05) = (%d,%d,%d), want (0,5,1)", major, arg, next)
	}
}

func TestCborHeadOneByteArgument(t *testing.T) {
	major, arg, next, err := cborHead([]byte{0x18, 0xff}, 0)
	if err != nil {
		t.Fatalf("cborHead: %v", err)
	}
	if major != cborMajorUnsigned || arg != 255 || next != 2 {
		t.Errorf("cborHead(0x18 0xff) = (%d,%d,%d), want (0,255,2)", major, arg, next)
	}
}

func TestDecodeCBORDataSmallInt(t *testing.T) {
	d, next, err := decodeCBORData([]byte{0x2a}, 0) // unsigned 42
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "int" || d.Int.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("decodeCBORData(0x2a) = %+v, want int 42", d)
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}

func TestDecodeCBORDataNegativeInt(t *testing.T) {
	d, _, err := decodeCBORData([]byte{0x29}, 0) // major 1, arg 9 -> -10
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "int" || d.Int.Cmp(big.NewInt(-10)) != 0 {
		t.Errorf("decodeCBORData(0x29) = %+v, want int -10", d)
	}
}

func TestDecodeCBORDataBytes(t *testing.T) {
	// major 2 (bytes), length 3, payload 0x01 0x02 0x03
	d, next, err := decodeCBORData([]byte{0x43, 0x01, 0x02, 0x03}, 0)
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "bytes" || len(d.Bytes) != 3 || d.Bytes[0] != 1 || d.Bytes[2] != 3 {
		t.Errorf("decodeCBORData(bytes) = %+v, want [1 2 3]", d)
	}
	if next != 4 {
		t.Errorf("next = %d, want 4", next)
	}
}

func TestDecodeCBORDataConstructorAlternative0(t *testing.T) {
	// tag 121 (constructor alt 0), array of length 1 containing unsigned 7
	raw := []byte{0xd8, 0x79, 0x81, 0x07}
	d, _, err := decodeCBORData(raw, 0)
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "constr" || d.Tag != 0 {
		t.Fatalf("decodeCBORData(constr) = %+v, want Kind=constr Tag=0", d)
	}
	if len(d.Fields) != 1 || d.Fields[0].Int.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("decodeCBORData(constr) fields = %+v, want [7]", d.Fields)
	}
}

func TestDecodeCBORDataList(t *testing.T) {
	// major 4 (array), length 2, items unsigned 1 and 2
	raw := []byte{0x82, 0x01, 0x02}
	d, _, err := decodeCBORData(raw, 0)
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "list" || len(d.Fields) != 2 {
		t.Fatalf("decodeCBORData(list) = %+v, want 2 fields", d)
	}
	if d.Fields[0].Int.Cmp(big.NewInt(1)) != 0 || d.Fields[1].Int.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("decodeCBORData(list) fields = %+v, want [1 2]", d.Fields)
	}
}

func TestDecodeCBORDataBignumTag(t *testing.T) {
	// tag 2 (positive bignum) over a 2-byte string 0x01 0x00 = 256
	raw := []byte{0xc2, 0x42, 0x01, 0x00}
	d, _, err := decodeCBORData(raw, 0)
	if err != nil {
		t.Fatalf("decodeCBORData: %v", err)
	}
	if d.Kind != "int" || d.Int.Cmp(big.NewInt(256)) != 0 {
		t.Errorf("decodeCBORData(bignum) = %+v, want int 256", d)
	}
}

func TestDecodeCBORDataTruncatedInput(t *testing.T) {
	if _, _, err := decodeCBORData([]byte{0x43, 0x01}, 0); err == nil {
		t.Error("decodeCBORData on a truncated byte string: want error, got nil")
	}
}
