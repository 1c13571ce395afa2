package bignum

import "testing"

func TestHexRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 10, 101, 1024, 0xdeadbeef}
	for _, n := range cases {
		x := FromUint64(n)
		hex := x.Hex()
		y, err := FromHex(hex)
		if err != nil {
			t.Fatalf("FromHex(%q): %v", hex, err)
		}
		if y.Cmp(x) != 0 {
			t.Errorf("round trip mismatch for %d: got hex %q back as %q", n, hex, y.Hex())
		}
	}
}

func TestFromHexUpperAndLowerCase(t *testing.T) {
	lower, err := FromHex("deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := FromHex("DEADBEEF")
	if err != nil {
		t.Fatal(err)
	}
	if lower.Cmp(upper) != 0 {
		t.Errorf("case-insensitive hex parse mismatch")
	}
}

func TestFromHexRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "zz", "12g4"} {
		if _, err := FromHex(s); err == nil {
			t.Errorf("FromHex(%q) should have failed", s)
		}
	}
}

func TestMulMod(t *testing.T) {
	a := FromUint64(16)
	b := FromUint64(27)
	m := FromUint64(101)
	got := New().MulMod(a, b, m)
	if got.Hex() != "1c" { // 432 mod 101 = 28 = 0x1c
		t.Errorf("MulMod: got %s, want 1c", got.Hex())
	}
}

func TestPowMod(t *testing.T) {
	base := FromUint64(2)
	exp := FromUint64(10)
	m := FromUint64(101)
	got := New().PowMod(base, exp, m)
	if got.Hex() != "e" { // 2^10 mod 101 = 1024 mod 101 = 14 = 0xe
		t.Errorf("PowMod: got %s, want e", got.Hex())
	}
}

func TestLowBitsAndRsh(t *testing.T) {
	x := FromUint64(0b10110101)
	if got := x.LowBits(4); got != 0b0101 {
		t.Errorf("LowBits(4): got %b, want %b", got, 0b0101)
	}
	shifted := New().Rsh(x, 4)
	if shifted.Hex() != FromUint64(0b1011).Hex() {
		t.Errorf("Rsh(4): got %s", shifted.Hex())
	}
	// x itself must be unmodified by Rsh.
	if x.Hex() != FromUint64(0b10110101).Hex() {
		t.Errorf("Rsh mutated its source")
	}
}

func TestBitLen(t *testing.T) {
	if FromUint64(0).BitLen() != 0 {
		t.Errorf("BitLen(0) should be 0")
	}
	if FromUint64(0xFF).BitLen() != 8 {
		t.Errorf("BitLen(0xFF) should be 8, got %d", FromUint64(0xFF).BitLen())
	}
}
