package fixedpoint

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14159, -3.14159, 6.2831852}
	for _, c := range cases {
		s := FromFloat64(c)
		got := s.Float64()
		if diff := got - c; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("FromFloat64(%v).Float64() = %v, want within 1e-4", c, got)
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	s := FromFloat64(2.5)
	raw := s.Raw()
	s2 := FromRaw(raw)
	if s != s2 {
		t.Errorf("FromRaw(Raw()) = %v, want %v", s2, s)
	}
}

func TestAddSub(t *testing.T) {
	a := FromFloat64(1.5)
	b := FromFloat64(0.5)
	if got := a.Add(b).Float64(); got != 2.0 {
		t.Errorf("Add = %v, want 2.0", got)
	}
	if got := a.Sub(b).Float64(); got != 1.0 {
		t.Errorf("Sub = %v, want 1.0", got)
	}
}
