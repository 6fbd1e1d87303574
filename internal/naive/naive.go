// Package naive implements the brute force search that KMP is measured against.
package naive

import "github.com/swdunlop/match-go/trace"

// Search returns every position in text where pattern starts by comparing pattern against each offset of text from
// left to right, stopping at the first mismatch.  Comparisons counts every code unit compared, which is O(n*m) in the
// worst case.  An empty pattern has no occurrences and costs nothing.
func Search[T comparable](text, pattern []T, fn trace.Func) (comparisons int, positions []int) {
	n, m := len(text), len(pattern)
	if m == 0 {
		return
	}
	for i := 0; i <= n-m; i++ {
		j := 0
		for ; j < m; j++ {
			comparisons++
			if text[i+j] != pattern[j] {
				fn.Emit(trace.Event{Phase: trace.PhaseBruteForce, Step: comparisons, I: i + j, J: j, Decision: trace.Mismatch})
				break
			}
			fn.Emit(trace.Event{Phase: trace.PhaseBruteForce, Step: comparisons, I: i + j, J: j, Decision: trace.Extend})
		}
		if j == m {
			positions = append(positions, i)
			fn.Emit(trace.Event{Phase: trace.PhaseBruteForce, Step: comparisons, I: i + m - 1, J: m - 1, Decision: trace.Found, Value: i})
		}
	}
	return
}
