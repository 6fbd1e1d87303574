// Package worker implements a NATS-based worker that searches texts on behalf of clients.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pbnjay/memory"
	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/configuration"
	"github.com/swdunlop/match-go/internal/slog"
	"github.com/swdunlop/match-go/nats/internal"
	msg "github.com/swdunlop/match-go/nats/protocol"
	"github.com/swdunlop/match-go/trace"
)

// Run will run a NATS-based worker with the provided configuration until the context is cancelled.
func Run(ctx context.Context, cf configuration.Interface, options ...Option) error {
	slog.From(ctx).Debug(`starting worker`)
	var w worker
	w.options = Defaults()
	err := configuration.Unmarshal(&w.options, cf)
	if err != nil {
		return err
	}
	w.dial = internal.Defaults(`match-worker`)
	err = configuration.Unmarshal(&w.dial, cf)
	if err != nil {
		return err
	}
	for _, opt := range options {
		opt(&w)
		if w.err != nil {
			return w.err
		}
	}
	if w.options.Workers < 1 {
		return fmt.Errorf(`at least one worker is required, got %v`, w.options.Workers)
	}
	if w.options.QueueSize < 0 {
		return fmt.Errorf(`queue size cannot be negative, got %v`, w.options.QueueSize)
	}

	if w.conn == nil {
		w.conn, err = w.dial.Dial()
		if err != nil {
			return err
		}
		defer w.conn.Close()
	}

	ch := make(chan *nats.Msg, 64)
	slog.From(ctx).Debug(`subscribing to worker subject`, `subject`, w.options.WorkerSubject, `queue`, w.options.Queue)
	sub, err := w.conn.ChanQueueSubscribe(w.options.WorkerSubject, w.options.Queue, ch)
	if err != nil {
		return err
	}
	if err = w.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return err
	}

	unsubscribed := make(chan struct{})
	defer func() { <-unsubscribed }()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer close(unsubscribed)
		<-ctx.Done()
		err := sub.Unsubscribe()
		if err != nil {
			slog.Warn(`failed to unsubscribe from worker subject`, `subject`, w.options.WorkerSubject, `err`, err.Error())
		}
		close(ch)
	}()

	w.jobs = make(chan job, w.options.QueueSize)
	w.done.Add(w.options.Workers)
	for i := 0; i < w.options.Workers; i++ {
		go w.processJobs()
	}
	slog.From(ctx).Info(`worker ready`, `subject`, w.options.WorkerSubject, `workers`, w.options.Workers,
		`max_input`, w.options.MaxInput)
	for _, fn := range w.started {
		fn()
	}
	w.run(ctx, ch)
	return nil
}

// Defaults returns the options used by Run for anything that is not configured.
func Defaults() Options {
	return Options{
		WorkerSubject: internal.DefaultSubject,
		Queue:         `match-worker`,
		Workers:       runtime.NumCPU(),
		QueueSize:     64,
		MaxInput:      int64(memory.TotalMemory() / 16),
		TraceLimit:    4096,
	}
}

// Options describes the configuration options for a NATS-based worker.  The connection itself is configured with the
// same nats_url, nats_client_name, nats_nk and nats_ca options used by the client.
type Options struct {
	// WorkerSubject is the NATS subject to subscribe to, defaults to match.worker.default.
	WorkerSubject string `cfg:"worker_subject"`

	// Queue is the NATS queue group shared by workers on the same subject, defaults to match-worker.
	Queue string `cfg:"worker_queue"`

	// Workers is the number of requests processed at once, defaults to the number of CPUs.
	Workers int `cfg:"workers"`

	// QueueSize is the number of requests that may wait for a free worker before new requests are rejected as busy.
	QueueSize int `cfg:"queue"`

	// MaxInput limits the combined size of text and pattern in bytes.  This defaults to a sixteenth of physical
	// memory; zero or less disables the limit.
	MaxInput int64 `cfg:"max_input"`

	// TraceLimit is the most trace events streamed for one request, defaults to 4096.
	TraceLimit int `cfg:"trace_limit"`
}

type worker struct {
	options Options
	dial    internal.Options
	conn    *nats.Conn
	started []func()
	jobs    chan job
	done    sync.WaitGroup
	err     error // used by options to indicate a fatal error.
}

type job struct {
	ctx   context.Context
	reply string
	*msg.WorkerRequest
}

func (w *worker) run(ctx context.Context, ch chan *nats.Msg) {
	defer func() {
		close(w.jobs)
		w.done.Wait()
	}()
	for nm := range ch {
		w.process(ctx, nm)
	}
}

func (w *worker) process(ctx context.Context, nm *nats.Msg) {
	var req msg.WorkerRequest
	err := json.Unmarshal(nm.Data, &req)
	switch {
	case err != nil:
		w.reject(ctx, nm.Reply, ``, msg.ErrIllegibleRequest, err.Error())
		return
	case req.Job == ``:
		w.reject(ctx, nm.Reply, ``, msg.ErrInvalidRequest, `job id is required`)
		return
	case req.Search == nil && req.LPS == nil:
		w.reject(ctx, nm.Reply, req.Job, msg.ErrUnsupportedCommand, `command not supported`)
		return
	}

	ctx = slog.With(ctx, `job`, req.Job)
	select {
	case <-ctx.Done():
		w.reject(ctx, nm.Reply, req.Job, msg.ErrShuttingDown, `worker shutting down`)
	case w.jobs <- job{ctx, nm.Reply, &req}:
	default:
		w.reject(ctx, nm.Reply, req.Job, msg.ErrBusy, `worker busy`)
	}
}

func (w *worker) processJobs() {
	defer w.done.Done()
	for j := range w.jobs {
		slog.From(j.ctx).Debug(`processing request`, `reply`, j.reply)
		switch {
		case j.LPS != nil:
			w.lps(j)
		case j.Search != nil:
			w.search(j)
		}
		slog.From(j.ctx).Debug(`finished processing request`, `reply`, j.reply)
	}
}

func (w *worker) lps(j job) {
	req := j.LPS
	if req.Pattern == nil {
		w.reject(j.ctx, j.reply, j.Job, msg.ErrInvalidRequest, `pattern is required`)
		return
	}
	if w.tooLarge(len(*req.Pattern)) {
		w.reject(j.ctx, j.reply, j.Job, msg.ErrTooLarge, `pattern is too large`)
		return
	}
	lps := match.BuildLPSString(*req.Pattern)
	_ = w.respond(j.ctx, j.reply, &msg.WorkerResponse{Job: j.Job, LPS: &msg.LPSResponse{LPS: lps}})
}

func (w *worker) search(j job) {
	req := j.Search
	switch {
	case req.Text == nil:
		w.reject(j.ctx, j.reply, j.Job, msg.ErrInvalidRequest, `text is required`)
		return
	case req.Pattern == nil:
		w.reject(j.ctx, j.reply, j.Job, msg.ErrInvalidRequest, `pattern is required`)
		return
	case w.tooLarge(len(*req.Text) + len(*req.Pattern)):
		w.reject(j.ctx, j.reply, j.Job, msg.ErrTooLarge, `text and pattern are too large`)
		return
	}
	algorithms, err := parseAlgorithms(req.Algorithms)
	if err != nil {
		w.reject(j.ctx, j.reply, j.Job, msg.ErrInvalidRequest, err.Error())
		return
	}

	var fn trace.Func
	truncated := false
	reply := j.reply
	if req.Stream != `` {
		// send an empty response to indicate that we will be streaming.
		err := w.respond(j.ctx, reply, &msg.WorkerResponse{Job: j.Job})
		if err != nil {
			return // do not continue if we cannot respond.
		}
		reply = req.Stream
		sent := 0
		fn = func(evt trace.Event) {
			if sent >= w.options.TraceLimit {
				truncated = true
				return
			}
			sent++
			_ = w.respond(j.ctx, reply, &msg.WorkerResponse{Job: j.Job, Stream: &msg.StreamResponse{Event: evt}})
		}
	}

	results := make([]match.Result, 0, len(algorithms))
	for _, alg := range algorithms {
		ret, err := match.SearchString(*req.Text, *req.Pattern, alg, match.Trace(fn))
		if err != nil {
			w.fail(j, reply, err)
			return
		}
		slog.From(j.ctx).Debug(`searched`, `algorithm`, alg, `comparisons`, ret.Comparisons, `matches`, len(ret.Positions))
		results = append(results, ret)
	}
	_ = w.respond(j.ctx, reply, &msg.WorkerResponse{
		Job:    j.Job,
		Search: &msg.SearchResponse{Results: results, Truncated: truncated},
	})
}

func parseAlgorithms(names []string) ([]match.Algorithm, error) {
	if len(names) == 0 {
		return match.Algorithms(), nil
	}
	algorithms := make([]match.Algorithm, len(names))
	for i, name := range names {
		alg, err := match.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		algorithms[i] = alg
	}
	return algorithms, nil
}

func (w *worker) tooLarge(size int) bool {
	return w.options.MaxInput > 0 && int64(size) > w.options.MaxInput
}

func (w *worker) fail(j job, reply string, err error) {
	if errors.Is(err, match.ErrInvalidArgument) || errors.Is(err, match.ErrUnknownAlgorithm) {
		w.reject(j.ctx, reply, j.Job, msg.ErrInvalidRequest, err.Error())
		return
	}
	w.reject(j.ctx, reply, j.Job, msg.ErrSearchFailed, err.Error())
}

func (w *worker) reject(ctx context.Context, reply, job string, code int, message string) {
	slog.From(ctx).Warn(`rejecting request`, `code`, code, `error`, message)
	_ = w.respond(ctx, reply, &msg.WorkerResponse{
		Job: job,
		Error: &msg.Error{
			Code: code,
			Err:  message,
		},
	})
}

func (w *worker) respond(ctx context.Context, subject string, resp *msg.WorkerResponse) error {
	if subject == `` {
		return nil // the request did not ask for a reply.
	}
	data, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	err = w.conn.Publish(subject, data)
	if err != nil {
		slog.From(ctx).Error(`failed to publish response`, `subject`, subject, `err`, err)
	}
	return err
}

// An Option is a function that alters a worker's behavior.
type Option func(*worker)

// Conn sets the NATS connection to use for getting requests and publishing responses.  This is an alternative to
// letting the worker manage its own connection.
func Conn(conn *nats.Conn) Option {
	return func(w *worker) {
		if w.conn != nil {
			w.err = errors.New("only one NATS connection is used by a worker")
		}
		w.conn = conn
	}
}

// Started registers a function that is called once the worker is subscribed and ready for requests.
func Started(fn func()) Option {
	return func(w *worker) { w.started = append(w.started, fn) }
}

// With overrides options after they have been read from the configuration.
func With(fn func(*Options)) Option {
	return func(w *worker) { fn(&w.options) }
}
