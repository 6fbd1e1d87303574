package main

import (
	"os"
	"strings"
	"testing"

	"github.com/swdunlop/match-go"
)

func TestReport(t *testing.T) {
	for _, test := range []struct {
		Name    string
		Text    string
		Pattern string
		Expect  []string // lines that must appear
	}{
		{"found", "ABABDABACDABABCABAB", "ABABCABAB", []string{
			"LPS: 0,0,1,2,0,1,2,3,4\n",
			"brute force: pattern found at positions: 10\n",
			"kmp: pattern found at positions: 10\n",
		}},
		{"overlapping", "AAAA", "AA", []string{
			"brute force: pattern found at positions: 0, 1, 2\n",
			"kmp: pattern found at positions: 0, 1, 2\n",
			"  brute force: 6\n",
			"  kmp: 4\n",
			"(kmp made 2 fewer comparisons)",
		}},
		{"notFound", "ABC", "D", []string{
			"brute force: pattern not found in text\n",
			"kmp: pattern not found in text\n",
		}},
		{"emptyPattern", "X", "", []string{
			"kmp: pattern not found in text\n",
		}},
	} {
		t.Run(test.Name, func(t *testing.T) {
			c, err := match.CompareString(test.Text, test.Pattern)
			if err != nil {
				t.Fatal(err)
			}
			var buf strings.Builder
			if err := report(&buf, c); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			for _, line := range test.Expect {
				if !strings.Contains(out, line) {
					t.Errorf("expected %q in:\n%v", line, out)
				}
			}
		})
	}
}

func TestPrintEvents(t *testing.T) {
	var buf strings.Builder
	_, err := match.SearchString(`AAB`, `AB`, match.KMP, match.Trace(printEvents(&buf, `AAB`, `AB`)))
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	t.Log(out)
	for _, line := range []string{
		"lps 1: pattern[1]='B' vs pattern[0]='A', mismatch, advance\n",
		"kmp 1: text[0]='A' vs pattern[0]='A', match\n",
		"pattern found at position 1\n",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("expected %q in:\n%v", line, out)
		}
	}
}

func TestLoadInput(t *testing.T) {
	t.Setenv(`MATCH_TEXT`, `ambient`)
	unsetenv(t, `MATCH_TEXT`, `MATCH_PATTERN`)
	cfgText, cfgPattern, cfgTextFile, cfgConfig = ``, `X`, ``, ``
	defer func() { cfgPattern = `` }()
	cf, err := loadConfiguration()
	if err != nil {
		t.Fatal(err)
	}
	text, pattern, err := loadInput(cf)
	if err != nil {
		t.Fatal(err)
	}
	if text != demoText || pattern != `X` {
		t.Errorf(`got text of %v and pattern %q`, len(text), pattern)
	}
}

// unsetenv clears the named variables until the test ends.
func unsetenv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		name := name
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := os.Unsetenv(name); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Setenv(name, value) })
	}
}

func TestTasks(t *testing.T) {
	names := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		switch {
		case names[task.Name]:
			t.Errorf(`task %v is defined twice`, task.Name)
		case task.Fn == nil:
			t.Errorf(`task %v has no function`, task.Name)
		case task.Parse == nil:
			t.Errorf(`task %v has no flags`, task.Name)
		}
		names[task.Name] = true
	}
	for _, name := range []string{`compare`, `lps`, `interactive`, `worker`, `client`, `config`} {
		if !names[name] {
			t.Errorf(`missing task %v`, name)
		}
	}
}
