// Package match finds every occurrence of a pattern in a text using either brute force or Knuth-Morris-Pratt,
// counting the code unit comparisons each one makes so the two can be compared.
//
// Text and pattern are slices of any comparable code unit: bytes for Go strings, runes, tokens and so on.  No
// normalization is done; two code units match only if they are equal.
package match

import (
	"fmt"
	"strings"

	"github.com/swdunlop/match-go/internal/kmp"
	"github.com/swdunlop/match-go/internal/naive"
	"github.com/swdunlop/match-go/trace"
)

// An Algorithm names a search strategy.
type Algorithm string

const (
	BruteForce Algorithm = `brute_force` // compare the pattern at every offset of the text.
	KMP        Algorithm = `kmp`         // Knuth-Morris-Pratt, driven by the failure function from BuildLPS.
)

// Algorithms returns the supported algorithms, baseline first.
func Algorithms() []Algorithm { return []Algorithm{BruteForce, KMP} }

// ParseAlgorithm resolves an algorithm name, ignoring case and accepting "-" in place of "_".
func ParseAlgorithm(name string) (Algorithm, error) {
	alg := Algorithm(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), `-`, `_`))
	switch alg {
	case BruteForce, KMP:
		return alg, nil
	}
	return ``, fmt.Errorf(`%w, %q`, ErrUnknownAlgorithm, name)
}

// String implements fmt.Stringer.
func (alg Algorithm) String() string { return string(alg) }

// A Searcher finds every occurrence of a pattern in a text using a single algorithm.  Searchers hold no state between
// calls and may be shared between goroutines, provided any trace function they were given is safe to share.
type Searcher[T comparable] interface {
	// Algorithm identifies the strategy used by the searcher.
	Algorithm() Algorithm

	// Search returns the positions where pattern occurs in text along with the number of comparisons made.  Unlike
	// the package level Search, nil slices are not rejected and are treated as empty.
	Search(text, pattern []T) Result
}

// New returns a Searcher that uses the named algorithm.
func New[T comparable](algorithm Algorithm, options ...Option) (Searcher[T], error) {
	cfg := configure(options)
	switch algorithm {
	case BruteForce:
		return searcher[T]{algorithm, naive.Search[T], cfg.trace}, nil
	case KMP:
		return searcher[T]{algorithm, kmp.Search[T], cfg.trace}, nil
	}
	return nil, fmt.Errorf(`%w, %q`, ErrUnknownAlgorithm, algorithm)
}

type searcher[T comparable] struct {
	algorithm Algorithm
	search    func(text, pattern []T, fn trace.Func) (int, []int)
	trace     trace.Func
}

func (s searcher[T]) Algorithm() Algorithm { return s.algorithm }

func (s searcher[T]) Search(text, pattern []T) Result {
	comparisons, positions := s.search(text, pattern, s.trace)
	if positions == nil {
		positions = []int{}
	}
	return Result{Algorithm: s.algorithm, Comparisons: comparisons, Positions: positions}
}

// A Result is the outcome of searching a text for a pattern with one algorithm.
type Result struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`

	// Comparisons is the number of code unit comparisons the algorithm made.
	Comparisons int `json:"comparisons" yaml:"comparisons"`

	// Positions lists where each occurrence of the pattern starts, in increasing order.  Overlapping occurrences are
	// all included.
	Positions []int `json:"positions" yaml:"positions"`
}

// Found returns true if the pattern occurred at least once.
func (r Result) Found() bool { return len(r.Positions) > 0 }

// BuildLPS returns the failure function of pattern, where lps[i] is the length of the longest proper prefix of
// pattern[:i+1] that is also its suffix.  An empty pattern has an empty failure function; a nil pattern is an
// invalid argument.
func BuildLPS[T comparable](pattern []T, options ...Option) ([]int, error) {
	if pattern == nil {
		return nil, fmt.Errorf(`%w, %s`, ErrInvalidArgument, `pattern is nil`)
	}
	lps, _ := kmp.Table(pattern, configure(options).trace)
	return lps, nil
}

// BuildLPSString is BuildLPS using the bytes of pattern as code units.
func BuildLPSString(pattern string, options ...Option) []int {
	lps, _ := kmp.Table([]byte(pattern), configure(options).trace)
	return lps
}

// Search finds every occurrence of pattern in text using the named algorithm.  Empty texts and patterns are valid
// and never match; nil texts and patterns are rejected with ErrInvalidArgument.
func Search[T comparable](text, pattern []T, algorithm Algorithm, options ...Option) (Result, error) {
	if err := validate(text, pattern); err != nil {
		return Result{}, err
	}
	s, err := New[T](algorithm, options...)
	if err != nil {
		return Result{}, err
	}
	return s.Search(text, pattern), nil
}

// SearchString is Search using the bytes of text and pattern as code units.
func SearchString(text, pattern string, algorithm Algorithm, options ...Option) (Result, error) {
	s, err := New[byte](algorithm, options...)
	if err != nil {
		return Result{}, err
	}
	return s.Search([]byte(text), []byte(pattern)), nil
}

func validate[T comparable](text, pattern []T) error {
	switch {
	case text == nil:
		return fmt.Errorf(`%w, %s`, ErrInvalidArgument, `text is nil`)
	case pattern == nil:
		return fmt.Errorf(`%w, %s`, ErrInvalidArgument, `pattern is nil`)
	}
	return nil
}

// ErrInvalidArgument is wrapped by errors caused by a missing text or pattern.  This is distinct from an empty text
// or pattern, which is valid.
var ErrInvalidArgument error = errInvalidArgument{}

type errInvalidArgument struct{}

// Error implements the error interface by returning a static string, "invalid argument"
func (errInvalidArgument) Error() string { return "invalid argument" }

// ErrUnknownAlgorithm is wrapped by errors caused by an algorithm name that is not supported.
var ErrUnknownAlgorithm error = errUnknownAlgorithm{}

type errUnknownAlgorithm struct{}

// Error implements the error interface by returning a static string, "unknown algorithm"
func (errUnknownAlgorithm) Error() string { return "unknown algorithm" }
