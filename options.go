package match

import "github.com/swdunlop/match-go/trace"

// An Option alters how a search is performed.
type Option func(*config)

// Trace delivers every step taken by the algorithms to fn, in order.  When combined with Concurrently, fn is called
// from more than one goroutine.
func Trace(fn trace.Func) Option {
	return func(cfg *config) { cfg.trace = fn }
}

// Concurrently lets Compare run each algorithm on its own goroutine.
func Concurrently() Option {
	return func(cfg *config) { cfg.concurrent = true }
}

type config struct {
	trace      trace.Func
	concurrent bool
}

func configure(options []Option) (cfg config) {
	for _, option := range options {
		option(&cfg)
	}
	return
}
