package verstring

import "testing"

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"v1.2.3", "1.2.3", 10.0 / 11.0},
	}
	for _, c := range cases {
		if got := Ratio(c.a, c.b); got != c.want {
			t.Errorf("Ratio(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"v1.0.0", "v1.0.0-rc1", "release-1.0.0"}
	got := BestMatch("1.0.0", candidates)
	if got != 0 {
		t.Errorf("BestMatch = %d, want 0 (%q)", got, candidates[got])
	}
}
