package kmp

import (
	"strings"
	"testing"

	"github.com/swdunlop/match-go/trace"
	"golang.org/x/exp/slices"
)

func TestTable(t *testing.T) {
	for _, test := range []struct {
		pattern string
		table   []int
	}{
		{``, []int{}},
		{`A`, []int{0}},
		{`AA`, []int{0, 1}},
		{`AB`, []int{0, 0}},
		{`AAAA`, []int{0, 1, 2, 3}},
		{`ABAB`, []int{0, 0, 1, 2}},
		{`AAACAAAA`, []int{0, 1, 2, 0, 1, 2, 3, 3}},
		{`ABABCABAB`, []int{0, 0, 1, 2, 0, 1, 2, 3, 4}},
		{`AABAACAABAA`, []int{0, 1, 0, 1, 2, 0, 1, 2, 3, 4, 5}},
		{`ABCDE`, []int{0, 0, 0, 0, 0}},
		{`AABAAAB`, []int{0, 1, 0, 1, 2, 2, 3}},
	} {
		table, steps := Table([]byte(test.pattern), nil)
		t.Logf(`Table(%q) = %v in %v steps`, test.pattern, table, steps)
		if !slices.Equal(table, test.table) {
			t.Errorf(`Test failed, expected %v`, test.table)
		}
		if max := 2 * len(test.pattern); steps > max {
			t.Errorf(`Test failed, expected at most %v steps`, max)
		}
	}
}

func TestTableBounds(t *testing.T) {
	for _, pattern := range []string{
		`A`, `ABABABAB`, `AAAAAAAAB`, `ABCABCABD`, `XYXYYXYXYX`, strings.Repeat(`AB`, 64) + `A`,
	} {
		first, _ := Table([]byte(pattern), nil)
		second, _ := Table([]byte(pattern), nil)
		if !slices.Equal(first, second) {
			t.Errorf(`Table(%q) is not stable: %v then %v`, pattern, first, second)
		}
		if first[0] != 0 {
			t.Errorf(`Table(%q)[0] = %v, expected 0`, pattern, first[0])
		}
		for i, v := range first {
			if v < 0 || v > i {
				t.Errorf(`Table(%q)[%v] = %v, out of bounds`, pattern, i, v)
			}
		}
	}
}

func TestSearch(t *testing.T) {
	for _, test := range []struct {
		text, pattern string
		positions     []int
		comparisons   int
	}{
		{``, ``, nil, 0},
		{``, `X`, nil, 0},
		{`X`, ``, nil, 0},
		{`A`, `A`, []int{0}, 1},
		{`A`, `AB`, nil, 1},
		{`AAAA`, `AA`, []int{0, 1, 2}, 4},
		{`ABC`, `D`, nil, 3},
		{`ABABDABACDABABCABAB`, `ABABCABAB`, []int{10}, -1},
		{`xabxabx`, `abx`, []int{1, 4}, -1},
	} {
		comparisons, positions := Search([]byte(test.text), []byte(test.pattern), nil)
		t.Logf(`Search(%q, %q) = %v in %v comparisons`, test.text, test.pattern, positions, comparisons)
		if !slices.Equal(positions, test.positions) {
			t.Errorf(`Test failed, expected positions %v`, test.positions)
		}
		if test.comparisons >= 0 && comparisons != test.comparisons {
			t.Errorf(`Test failed, expected %v comparisons`, test.comparisons)
		}
		if max := 2 * len(test.text); comparisons > max {
			t.Errorf(`Test failed, expected at most %v comparisons`, max)
		}
	}
}

func TestSearchRunes(t *testing.T) {
	comparisons, positions := Search([]rune(`añoaño`), []rune(`ño`), nil)
	if !slices.Equal(positions, []int{1, 4}) {
		t.Errorf(`expected positions [1 4], got %v after %v comparisons`, positions, comparisons)
	}
}

func TestSearchTrace(t *testing.T) {
	var events []trace.Event
	_, positions := Search([]byte(`AAAA`), []byte(`AA`), func(evt trace.Event) {
		events = append(events, evt)
	})
	found := make([]int, 0, len(positions))
	lps := 0
	for _, evt := range events {
		switch {
		case evt.Phase == trace.PhaseLPS:
			lps++
		case evt.Decision == trace.Found:
			found = append(found, evt.Value)
		}
	}
	if lps != 1 {
		t.Errorf(`expected 1 lps event, got %v`, lps)
	}
	if !slices.Equal(found, positions) {
		t.Errorf(`expected found events %v, got %v`, positions, found)
	}
	if events[0].Phase != trace.PhaseLPS {
		t.Errorf(`expected the lps phase first, got %v`, events[0].Phase)
	}
}

func TestScan(t *testing.T) {
	pattern := []byte(`ABAB`)
	table, _ := Table(pattern, nil)
	for _, text := range []string{`ABABCABAB`, `ABABABAB`, `BBBB`} {
		var phases []trace.Phase
		comparisons, positions := Scan([]byte(text), pattern, table, func(evt trace.Event) {
			phases = append(phases, evt.Phase)
		})
		wantComparisons, wantPositions := Search([]byte(text), pattern, nil)
		t.Logf(`%v: %v after %v comparisons`, text, positions, comparisons)
		if comparisons != wantComparisons || !slices.Equal(positions, wantPositions) {
			t.Errorf(`%v: expected %v after %v comparisons`, text, wantPositions, wantComparisons)
		}
		if slices.Contains(phases, trace.PhaseLPS) {
			t.Errorf(`%v: scan rebuilt the table`, text)
		}
	}
}
