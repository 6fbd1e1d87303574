package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/configuration"
	"github.com/swdunlop/match-go/internal/slog"
	"github.com/swdunlop/match-go/nats"
	"github.com/swdunlop/match-go/nats/worker"
	"github.com/swdunlop/match-go/trace"
	"github.com/swdunlop/zugzug-go"
	"github.com/swdunlop/zugzug-go/zug/parser"
	"gopkg.in/yaml.v3"
)

var tasks = zugzug.Tasks{
	{Name: `compare`, Fn: runCompare, Use: `compares brute force and KMP searches for a pattern in a text`, Parse: parser.New(
		parser.String(&cfgText, `text`, `t`, `text to search; defaults to a demonstration text`),
		parser.String(&cfgTextFile, `text-file`, `f`, `file containing the text to search`),
		parser.String(&cfgPattern, `pattern`, `p`, `pattern to search for; defaults to a demonstration pattern`),
		parser.Bool(&cfgVerbose, `verbose`, `v`, false, `print every step taken by the algorithms`),
		parser.String(&cfgConfig, `config`, `c`, `YAML configuration file`),
	)},
	{Name: `lps`, Fn: runLPS, Use: `prints the failure function of a pattern`, Parse: parser.New(
		parser.String(&cfgPattern, `pattern`, `p`, `pattern to analyze`),
		parser.Bool(&cfgVerbose, `verbose`, `v`, false, `print every step taken to build the failure function`),
	)},
	{Name: `interactive`, Fn: runInteractive, Use: `reads patterns from the terminal and compares searches for each`, Parse: parser.New(
		parser.String(&cfgText, `text`, `t`, `text to search; defaults to a demonstration text`),
		parser.String(&cfgTextFile, `text-file`, `f`, `file containing the text to search`),
		parser.Bool(&cfgVerbose, `verbose`, `v`, false, `print every step taken by the algorithms`),
		parser.String(&cfgConfig, `config`, `c`, `YAML configuration file`),
	)},
	{Name: `worker`, Fn: runWorker, Use: `runs a NATS worker that searches on behalf of clients`, Parse: parser.New(
		parser.String(&cfgConfig, `config`, `c`, `YAML configuration file`),
	)},
	{Name: `client`, Fn: runClient, Use: `compares searches using a NATS worker`, Parse: parser.New(
		parser.String(&cfgText, `text`, `t`, `text to search; defaults to a demonstration text`),
		parser.String(&cfgTextFile, `text-file`, `f`, `file containing the text to search`),
		parser.String(&cfgPattern, `pattern`, `p`, `pattern to search for; defaults to a demonstration pattern`),
		parser.Bool(&cfgVerbose, `verbose`, `v`, false, `print every step taken by the worker`),
		parser.String(&cfgConfig, `config`, `c`, `YAML configuration file`),
	)},
	{Name: `config`, Fn: printConfig, Use: `prints the effective worker configuration as YAML`, Parse: parser.New(
		parser.String(&cfgConfig, `config`, `c`, `YAML configuration file`),
	)},
}

var (
	cfgText     string
	cfgTextFile string
	cfgPattern  string
	cfgVerbose  bool
	cfgConfig   string
)

func init() {
	slog.Init(os.Stderr, os.Getenv(`MATCH_DEBUG`) != ``)
}

func main() {
	zugzug.Main(tasks)
}

func runCompare(ctx context.Context) error {
	cf, err := loadConfiguration()
	if err != nil {
		return err
	}
	text, pattern, err := loadInput(cf)
	if err != nil {
		return err
	}
	return compare(os.Stdout, text, pattern)
}

func compare(w io.Writer, text, pattern string) error {
	var options []match.Option
	if cfgVerbose {
		options = append(options, match.Trace(printEvents(w, text, pattern)))
	}
	c, err := match.CompareString(text, pattern, options...)
	if err != nil {
		return err
	}
	return report(w, c)
}

func runLPS(ctx context.Context) error {
	var options []match.Option
	if cfgVerbose {
		options = append(options, match.Trace(printEvents(os.Stdout, ``, cfgPattern)))
	}
	lps := match.BuildLPSString(cfgPattern, options...)
	fmt.Printf("LPS for pattern %q: %v\n", cfgPattern, joinInts(lps, `,`))
	return nil
}

func runInteractive(ctx context.Context) error {
	cf, err := loadConfiguration()
	if err != nil {
		return err
	}
	text, _, err := loadInput(cf)
	if err != nil {
		return err
	}

	rl, err := readline.New(`pattern> `)
	if err != nil {
		return err
	}
	defer rl.Close()
	stdout := rl.Stdout()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, readline.ErrInterrupt):
			return nil
		case err != nil:
			return err
		case line == ``:
			continue
		}
		err = compare(stdout, text, line)
		if err != nil {
			return err
		}
	}
}

func runWorker(ctx context.Context) error {
	cf, err := loadConfiguration()
	if err != nil {
		return err
	}
	return worker.Run(ctx, cf)
}

func runClient(ctx context.Context) error {
	cf, err := loadConfiguration()
	if err != nil {
		return err
	}
	text, pattern, err := loadInput(cf)
	if err != nil {
		return err
	}
	ct, err := nats.NewNATS(nil, cf)
	if err != nil {
		return err
	}
	defer ct.Release()
	var fn trace.Func
	if cfgVerbose {
		fn = printEvents(os.Stdout, text, pattern)
	}
	c, err := ct.Compare(ctx, text, pattern, fn)
	if err != nil {
		return err
	}
	return report(os.Stdout, c)
}

func printConfig(ctx context.Context) error {
	cf, err := loadConfiguration()
	if err != nil {
		return err
	}
	opts := worker.Defaults()
	err = configuration.Unmarshal(&opts, cf)
	if err != nil {
		return err
	}
	out, err := configuration.Marshal(&opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(configuration.MapOf(out))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// loadConfiguration combines the MATCH_ environment with the --config file, in that order of precedence.
func loadConfiguration() (configuration.Interface, error) {
	file, err := configuration.File(cfgConfig)
	if err != nil {
		return nil, err
	}
	return configuration.Overlay{
		configuration.Environment(`MATCH_`),
		file,
		configuration.Map{
			`text`:    {demoText},
			`pattern`: {demoPattern},
		},
	}, nil
}

// loadInput resolves the text and pattern, preferring flags over the configuration.
func loadInput(cf configuration.Interface) (text, pattern string, err error) {
	if err = configuration.Get(&text, cf, `text`); err != nil {
		return
	}
	if err = configuration.Get(&pattern, cf, `pattern`); err != nil {
		return
	}
	switch {
	case cfgText != ``:
		text = cfgText
	case cfgTextFile != ``:
		var data []byte
		data, err = os.ReadFile(cfgTextFile)
		if err != nil {
			return
		}
		text = strings.TrimSuffix(string(data), "\n")
	}
	if cfgPattern != `` {
		pattern = cfgPattern
	}
	return
}

// The demonstration input has a long run of near matches, where brute force does the most redundant work.
var (
	demoText = strings.Repeat(`A`, 300) + `B` +
		strings.Repeat(`A`, 300) + `B` +
		strings.Repeat(`A`, 140)
	demoPattern = strings.Repeat(`A`, 100) + `B`
)
