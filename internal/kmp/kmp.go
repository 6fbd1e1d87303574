// Package kmp implements the Knuth-Morris-Pratt failure function and search.
package kmp

import "github.com/swdunlop/match-go/trace"

// Table returns the failure function of pattern: table[i] is the length of the longest proper prefix of
// pattern[:i+1] that is also a suffix of it.  Steps is the number of code unit comparisons made, which never
// exceeds 2*len(pattern).
func Table[T comparable](pattern []T, fn trace.Func) (table []int, steps int) {
	n := len(pattern)
	table = make([]int, n)
	if n == 0 {
		return
	}
	// each iteration either advances i or shrinks size, and size never exceeds i.
	for i, size := 1, 0; i < n; {
		steps++
		switch {
		case pattern[i] == pattern[size]:
			size++
			table[i] = size
			fn.Emit(trace.Event{Phase: trace.PhaseLPS, Step: steps, I: i, J: size - 1, Decision: trace.Extend, Value: size})
			i++
		case size != 0:
			fn.Emit(trace.Event{Phase: trace.PhaseLPS, Step: steps, I: i, J: size, Decision: trace.Fallback, Value: table[size-1]})
			size = table[size-1]
		default:
			table[i] = 0
			fn.Emit(trace.Event{Phase: trace.PhaseLPS, Step: steps, I: i, J: size, Decision: trace.Advance})
			i++
		}
	}
	return
}

// Search returns every position in text where pattern starts, including overlapping occurrences, in O(n+m) time.
// Comparisons counts one comparison per iteration of the scan.  An empty text or pattern has no occurrences and
// costs nothing.
func Search[T comparable](text, pattern []T, fn trace.Func) (comparisons int, positions []int) {
	if len(text) == 0 || len(pattern) == 0 {
		return
	}
	table, _ := Table(pattern, fn)
	return Scan(text, pattern, table, fn)
}

// Scan is Search using a table already built by Table for pattern, so one table can serve many texts.  Scan panics
// if table is shorter than pattern.
func Scan[T comparable](text, pattern []T, table []int, fn trace.Func) (comparisons int, positions []int) {
	n, m := len(text), len(pattern)
	if n == 0 || m == 0 {
		return
	}
	_ = table[m-1]

	i, j := 0, 0
	for i < n {
		comparisons++
		if text[i] == pattern[j] {
			fn.Emit(trace.Event{Phase: trace.PhaseKMP, Step: comparisons, I: i, J: j, Decision: trace.Extend})
			i++
			j++
		}
		if j == m {
			positions = append(positions, i-j)
			fn.Emit(trace.Event{Phase: trace.PhaseKMP, Step: comparisons, I: i - 1, J: j - 1, Decision: trace.Found, Value: i - j})
			j = table[j-1]
		} else if i < n && text[i] != pattern[j] {
			// this second look at text[i] is not counted, it only decides how to recover.
			if j != 0 {
				fn.Emit(trace.Event{Phase: trace.PhaseKMP, Step: comparisons, I: i, J: j, Decision: trace.Fallback, Value: table[j-1]})
				j = table[j-1]
			} else {
				fn.Emit(trace.Event{Phase: trace.PhaseKMP, Step: comparisons, I: i, J: j, Decision: trace.Advance})
				i++
			}
		}
	}
	return
}
