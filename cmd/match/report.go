package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/trace"
)

// report prints the comparison counts and where each algorithm found the pattern.
func report(w io.Writer, c *match.Comparison) error {
	var buf strings.Builder
	fmt.Fprintf(&buf, "LPS: %v\n\n", joinInts(c.LPS, `,`))
	fmt.Fprintf(&buf, "Comparisons:\n")
	fmt.Fprintf(&buf, "  brute force: %v\n", c.BruteForce.Comparisons)
	fmt.Fprintf(&buf, "  kmp: %v\n", c.KMP.Comparisons)
	switch saved := c.Saved(); {
	case saved > 0:
		fmt.Fprintf(&buf, "  (kmp made %v fewer comparisons)\n", saved)
	case saved < 0:
		fmt.Fprintf(&buf, "  (kmp made %v more comparisons)\n", -saved)
	}
	buf.WriteString("\n")
	for _, ret := range []match.Result{c.BruteForce, c.KMP} {
		if ret.Found() {
			fmt.Fprintf(&buf, "%v: pattern found at positions: %v\n", algorithmName(ret.Algorithm), joinInts(ret.Positions, `, `))
		} else {
			fmt.Fprintf(&buf, "%v: pattern not found in text\n", algorithmName(ret.Algorithm))
		}
	}
	_, err := io.WriteString(w, buf.String())
	if err != nil {
		return err
	}
	if !c.Agree() {
		return fmt.Errorf(`brute force and kmp disagree`)
	}
	return nil
}

func algorithmName(alg match.Algorithm) string {
	switch alg {
	case match.BruteForce:
		return `brute force`
	case match.KMP:
		return `kmp`
	}
	return alg.String()
}

// printEvents returns a trace function that narrates each step, showing the code units being compared.
func printEvents(w io.Writer, text, pattern string) trace.Func {
	return func(evt trace.Event) {
		var line string
		switch evt.Phase {
		case trace.PhaseLPS:
			line = fmt.Sprintf(`lps %v: pattern[%v]=%v vs pattern[%v]=%v, %v`,
				evt.Step, evt.I, unitAt(pattern, evt.I), evt.J, unitAt(pattern, evt.J), describe(evt))
		default:
			line = fmt.Sprintf(`%v %v: text[%v]=%v vs pattern[%v]=%v, %v`,
				evt.Phase, evt.Step, evt.I, unitAt(text, evt.I), evt.J, unitAt(pattern, evt.J), describe(evt))
		}
		fmt.Fprintln(w, line)
	}
}

func describe(evt trace.Event) string {
	switch evt.Decision {
	case trace.Extend:
		if evt.Phase == trace.PhaseLPS {
			return fmt.Sprintf(`match, lps[%v]=%v`, evt.I, evt.Value)
		}
		return `match`
	case trace.Fallback:
		return fmt.Sprintf(`mismatch, fall back to %v`, evt.Value)
	case trace.Advance:
		return `mismatch, advance`
	case trace.Mismatch:
		return `mismatch, next offset`
	case trace.Found:
		return fmt.Sprintf(`pattern found at position %v`, evt.Value)
	}
	return string(evt.Decision)
}

func unitAt(s string, i int) string {
	if i < 0 || i >= len(s) {
		return `?`
	}
	return strconv.QuoteRuneToASCII(rune(s[i]))
}

func joinInts(seq []int, sep string) string {
	items := make([]string, len(seq))
	for i, v := range seq {
		items[i] = strconv.Itoa(v)
	}
	return strings.Join(items, sep)
}
