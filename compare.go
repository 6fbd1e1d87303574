package match

import (
	"sync"

	"github.com/swdunlop/match-go/internal/kmp"
	"github.com/swdunlop/match-go/internal/naive"
	"github.com/swdunlop/match-go/trace"
	"golang.org/x/exp/slices"
)

// A Comparison holds the results of searching the same text for the same pattern with both algorithms.
type Comparison struct {
	LPS        []int  `json:"lps" yaml:"lps"`
	BruteForce Result `json:"brute_force" yaml:"brute_force"`
	KMP        Result `json:"kmp" yaml:"kmp"`
}

// Agree returns true if both algorithms found the same positions, which they always should.
func (c *Comparison) Agree() bool { return slices.Equal(c.BruteForce.Positions, c.KMP.Positions) }

// Saved returns how many fewer comparisons KMP made than brute force.  This is negative when KMP made more, which
// can happen for short texts with few repeated prefixes.
func (c *Comparison) Saved() int { return c.BruteForce.Comparisons - c.KMP.Comparisons }

// Compare searches text for pattern with both algorithms.  The failure function is built once and the KMP scan uses
// it as the LPS of the comparison.  Nil texts and patterns are rejected with
// ErrInvalidArgument, like Search.
func Compare[T comparable](text, pattern []T, options ...Option) (*Comparison, error) {
	if err := validate(text, pattern); err != nil {
		return nil, err
	}
	return compare(text, pattern, options)
}

// CompareString is Compare using the bytes of text and pattern as code units.
func CompareString(text, pattern string, options ...Option) (*Comparison, error) {
	return compare([]byte(text), []byte(pattern), options)
}

func compare[T comparable](text, pattern []T, options []Option) (*Comparison, error) {
	cfg := configure(options)
	lps, _ := kmp.Table(pattern, cfg.trace)
	bf := searcher[T]{BruteForce, naive.Search[T], cfg.trace}
	fast := searcher[T]{KMP, func(text, pattern []T, fn trace.Func) (int, []int) {
		return kmp.Scan(text, pattern, lps, fn)
	}, cfg.trace}

	c := &Comparison{LPS: lps}
	if !cfg.concurrent {
		c.BruteForce = bf.Search(text, pattern)
		c.KMP = fast.Search(text, pattern)
		return c, nil
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.BruteForce = bf.Search(text, pattern) }()
	go func() { defer wg.Done(); c.KMP = fast.Search(text, pattern) }()
	wg.Wait()
	return c, nil
}
