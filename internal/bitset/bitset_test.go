package bitset

import "testing"

func TestBitset(t *testing.T) {
	bs := NewBitset(130)
	for _, i := range []int{0, 63, 64, 129} {
		bs.Set(i)
	}
	bs.Put(5, true)
	bs.Put(63, false)
	tests := []struct {
		I   int
		Set bool
	}{{0, true}, {5, true}, {63, false}, {64, true}, {100, false}, {129, true}}
	for _, test := range tests {
		if got := bs.Test(test.I); got != test.Set {
			t.Errorf("bit %d = %t, want %t", test.I, got, test.Set)
		}
	}
	grown := bs.Grow(1000)
	if !grown.Test(129) || grown.Test(999) {
		t.Error("grow lost or invented bits")
	}
	bs.Reset()
	for _, test := range tests {
		if bs.Test(test.I) {
			t.Errorf("bit %d set after reset", test.I)
		}
	}
}
