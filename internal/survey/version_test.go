package survey

import "testing"

func TestNextVersion(t *testing.T) {
	cases := []struct {
		versions []int
		want     int
	}{
		{nil, 1},
		{[]int{}, 1},
		{[]int{1}, 2},
		{[]int{3, 2, 1}, 4},
		{[]int{1, 3, 2}, 4},
	}
	for _, tc := range cases {
		if got := NextVersion(tc.versions); got != tc.want {
			t.Fatalf("NextVersion(%v) = %d, want %d", tc.versions, got, tc.want)
		}
	}
}
