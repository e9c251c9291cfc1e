package main

import "testing"

func TestCTypeSizes(t *testing.T) {
	cases := []struct {
		t    CType
		want int
	}{
		{VTByte, 1},
		{VTBool, 1},
		{VTShort, 2},
		{VTInt, 4},
		{VTLong, 8},
		{VTLLong, 8},
		{NewPointer(VTInt), 8},
	}
	for _, c := range cases {
		if got := c.t.Size(); got != c.want {
			t.Errorf("%v.Size() = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestCTypePointerRoundTrip(t *testing.T) {
	p := NewPointer(VTInt)
	if !p.IsPointer() {
		t.Fatal("NewPointer(VTInt).IsPointer() = false")
	}
	if p.Deref().Basic() != VTInt {
		t.Errorf("p.Deref().Basic() = %v, want VTInt", p.Deref().Basic())
	}

	pp := NewPointer(p)
	if !pp.IsPointer() {
		t.Fatal("double pointer IsPointer() = false")
	}
	if pp.Deref().Basic() != VTPtr {
		t.Errorf("pp.Deref().Basic() = %v, want VTPtr (int*)", pp.Deref().Basic())
	}
	if pp.Deref().Deref().Basic() != VTInt {
		t.Errorf("pp.Deref().Deref().Basic() = %v, want VTInt", pp.Deref().Deref().Basic())
	}
}

func TestCTypeUnsignedModifier(t *testing.T) {
	u := VTInt | VTUnsigned
	if !u.IsUnsigned() {
		t.Error("VTInt|VTUnsigned IsUnsigned() = false")
	}
	if u.Basic() != VTInt {
		t.Errorf("Basic() = %v, want VTInt", u.Basic())
	}
	if u.IsSigned64() {
		t.Error("unsigned type reports IsSigned64() = true")
	}
	if !VTInt.IsSigned64() {
		t.Error("plain int reports IsSigned64() = false")
	}
	if NewPointer(VTInt).IsSigned64() {
		t.Error("pointer type reports IsSigned64() = true, want false (zero-extend)")
	}
}
