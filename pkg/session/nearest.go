package session

import "sort"

// NearestIndex returns the index of the entry in times closest to t,
// with ties broken toward the lower index. times must be sorted in
// increasing order. Returns -1 for an empty slice.
func NearestIndex(times []float64, t float64) int {
	if len(times) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(times, t)
	if i == 0 {
		return 0
	}
	if i == len(times) {
		return len(times) - 1
	}
	if t-times[i-1] <= times[i]-t {
		return i - 1
	}
	return i
}
