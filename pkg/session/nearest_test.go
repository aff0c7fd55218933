package session

import "testing"

func TestNearestIndex(t *testing.T) {
	times := []float64{0, 10, 20, 30}

	testCases := []struct {
		name  string
		times []float64
		t     float64
		want  int
	}{
		{"below range", times, -5, 0},
		{"exact first", times, 0, 0},
		{"closer to lower", times, 14, 1},
		{"midpoint ties low", times, 15, 1},
		{"closer to upper", times, 16, 2},
		{"exact interior", times, 20, 2},
		{"above range", times, 100, 3},
		{"single entry", []float64{5}, 99, 0},
		{"empty", nil, 7, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NearestIndex(tc.times, tc.t); got != tc.want {
				t.Errorf("NearestIndex(%v, %v) = %d, want %d", tc.times, tc.t, got, tc.want)
			}
		})
	}
}
