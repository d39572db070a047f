package fixed

import "testing"

func TestFromFloat64RoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 0.5, -0.5, 0.25, 127.99}
	for _, v := range cases {
		q := FromFloat64(v)
		got := q.Float64()
		if diff := got - v; diff > 1.0/256 || diff < -1.0/256 {
			t.Errorf("FromFloat64(%v).Float64() = %v, want within 1/256", v, got)
		}
	}
}

func TestFromFloat64Saturates(t *testing.T) {
	if FromFloat64(1e20) != Max {
		t.Errorf("FromFloat64(huge) = %v, want Max", FromFloat64(1e20))
	}
	if FromFloat64(-1e20) != Min {
		t.Errorf("FromFloat64(-huge) = %v, want Min", FromFloat64(-1e20))
	}
}

func TestClamp(t *testing.T) {
	lo, hi := FromFloat64(0), FromFloat64(1)
	if got := Clamp(FromFloat64(-5), lo, hi); got != lo {
		t.Errorf("Clamp(-5, 0, 1) = %v, want %v", got, lo)
	}
	if got := Clamp(FromFloat64(5), lo, hi); got != hi {
		t.Errorf("Clamp(5, 0, 1) = %v, want %v", got, hi)
	}
	mid := FromFloat64(0.5)
	if got := Clamp(mid, lo, hi); got != mid {
		t.Errorf("Clamp(0.5, 0, 1) = %v, want %v", got, mid)
	}
}
