package naive

import (
	"strings"
	"testing"

	"github.com/swdunlop/match-go/trace"
	"golang.org/x/exp/slices"
)

func TestSearch(t *testing.T) {
	for _, test := range []struct {
		text, pattern string
		positions     []int
		comparisons   int
	}{
		{``, ``, nil, 0},
		{``, `X`, nil, 0},
		{`X`, ``, nil, 0},
		{`A`, `AB`, nil, 0},
		{`A`, `A`, []int{0}, 1},
		{`AAAA`, `AA`, []int{0, 1, 2}, 6},
		{`ABC`, `D`, nil, 3},
		{`ABAB`, `AB`, []int{0, 2}, 5},
		{`ABABDABACDABABCABAB`, `ABABCABAB`, []int{10}, -1},
		{strings.Repeat(`A`, 10) + `B`, strings.Repeat(`A`, 4) + `B`, []int{6}, 35},
	} {
		comparisons, positions := Search([]byte(test.text), []byte(test.pattern), nil)
		t.Logf(`Search(%q, %q) = %v in %v comparisons`, test.text, test.pattern, positions, comparisons)
		if !slices.Equal(positions, test.positions) {
			t.Errorf(`Test failed, expected positions %v`, test.positions)
		}
		if test.comparisons >= 0 && comparisons != test.comparisons {
			t.Errorf(`Test failed, expected %v comparisons`, test.comparisons)
		}
	}
}

func TestSearchTrace(t *testing.T) {
	steps := 0
	comparisons, _ := Search([]byte(`ABAB`), []byte(`AB`), func(evt trace.Event) {
		if evt.Decision != trace.Found {
			steps++
		}
		if evt.Phase != trace.PhaseBruteForce {
			t.Errorf(`unexpected phase %v`, evt.Phase)
		}
	})
	if steps != comparisons {
		t.Errorf(`expected one compare event per comparison, got %v events for %v comparisons`, steps, comparisons)
	}
}
