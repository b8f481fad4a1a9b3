package voice

import "testing"

func TestNormalizeSpeakerID(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"3", 3},
		{" 7 ", 7},
		{"abc", 1},
		{"", 1},
		{"-2", 1},
		{"0", 1},
		{"1.5", 1},
		{"12", 12},
	}
	for _, tc := range cases {
		if got := NormalizeSpeakerID(tc.raw); got != tc.want {
			t.Errorf("NormalizeSpeakerID(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
