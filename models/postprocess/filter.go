package postprocess

import "sort"

// FilterByScore returns the results whose score is strictly above threshold.
// The relative order of the survivors is preserved.
func FilterByScore(results []Result, threshold float32) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score > threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GroupByClass partitions results by class index. The returned class list is
// in ascending order and each bucket keeps the input order.
func GroupByClass(results []Result) (classes []int, buckets map[int][]Result) {
	buckets = make(map[int][]Result)
	for _, r := range results {
		if _, ok := buckets[r.Class]; !ok {
			classes = append(classes, r.Class)
		}
		buckets[r.Class] = append(buckets[r.Class], r)
	}
	sort.Ints(classes)
	return classes, buckets
}
