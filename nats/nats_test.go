package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/configuration"
	msg "github.com/swdunlop/match-go/nats/protocol"
	"github.com/swdunlop/match-go/nats/worker"
	"github.com/swdunlop/match-go/trace"
	"golang.org/x/exp/slices"
)

// startWorker runs an in-process NATS server and a worker attached to it, returning a client that uses the same
// connection.  Everything is stopped when the test ends.
func startWorker(t *testing.T, options ...worker.Option) *Client {
	t.Helper()
	srv := natsserver.RunRandClientPortServer()
	t.Cleanup(srv.Shutdown)
	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(conn.Close)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	options = append(options, worker.Conn(conn), worker.Started(func() { close(ready) }))
	go func() { done <- worker.Run(ctx, configuration.Map{`workers`: {`2`}}, options...) }()
	select {
	case <-ready:
	case err := <-done:
		cancel()
		t.Fatalf(`worker exited early: %v`, err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal(`worker did not start`)
	}
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf(`worker failed: %v`, err)
		}
	})

	ct, err := NewNATS(conn, configuration.Map{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ct.Release)
	return ct
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSearch(t *testing.T) {
	ct := startWorker(t)
	rsp, err := ct.Search(testContext(t), `ABABDABACDABABCABAB`, `ABABCABAB`, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rsp.Results) != 2 {
		t.Fatalf(`expected 2 results, got %v`, len(rsp.Results))
	}
	for i, alg := range []match.Algorithm{match.BruteForce, match.KMP} {
		ret := rsp.Results[i]
		t.Logf(`%v found %v in %v comparisons`, ret.Algorithm, ret.Positions, ret.Comparisons)
		if ret.Algorithm != alg {
			t.Errorf(`result %v is for %v, want %v`, i, ret.Algorithm, alg)
		}
		if !slices.Equal(ret.Positions, []int{10}) {
			t.Errorf(`%v found %v, want [10]`, ret.Algorithm, ret.Positions)
		}
	}
}

func TestSearchEmpty(t *testing.T) {
	ct := startWorker(t)
	rsp, err := ct.Search(testContext(t), `X`, ``, []match.Algorithm{match.KMP}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rsp.Results) != 1 || rsp.Results[0].Found() || rsp.Results[0].Comparisons != 0 {
		t.Errorf(`got %+v`, rsp.Results)
	}
}

func TestCompareStream(t *testing.T) {
	ct := startWorker(t)
	var events []trace.Event
	c, err := ct.Compare(testContext(t), `AAAA`, `AA`, func(evt trace.Event) {
		events = append(events, evt)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Agree() || !slices.Equal(c.KMP.Positions, []int{0, 1, 2}) {
		t.Errorf(`got positions %v and %v`, c.BruteForce.Positions, c.KMP.Positions)
	}
	if !slices.Equal(c.LPS, []int{0, 1}) {
		t.Errorf(`got lps %v`, c.LPS)
	}
	phases := make(map[trace.Phase]int)
	for _, evt := range events {
		phases[evt.Phase]++
	}
	t.Logf(`received %v events: %v`, len(events), phases)
	if phases[trace.PhaseBruteForce] == 0 || phases[trace.PhaseLPS] == 0 || phases[trace.PhaseKMP] == 0 {
		t.Errorf(`expected events from every phase, got %v`, phases)
	}
}

func TestStreamTruncated(t *testing.T) {
	ct := startWorker(t, worker.With(func(opts *worker.Options) { opts.TraceLimit = 3 }))
	n := 0
	rsp, err := ct.Search(testContext(t), `ABABAB`, `AB`, nil, func(trace.Event) { n++ })
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || !rsp.Truncated {
		t.Errorf(`got %v events, truncated %v`, n, rsp.Truncated)
	}
}

func TestLPS(t *testing.T) {
	ct := startWorker(t)
	lps, err := ct.LPS(testContext(t), `AABAACAABAA`)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{0, 1, 0, 1, 2, 0, 1, 2, 3, 4, 5}; !slices.Equal(lps, want) {
		t.Errorf(`got %v, want %v`, lps, want)
	}
}

func TestRejections(t *testing.T) {
	ct := startWorker(t, worker.With(func(opts *worker.Options) { opts.MaxInput = 8 }))
	ctx := testContext(t)

	_, err := ct.Search(ctx, `ABCDEFGH`, `A`, nil, nil)
	expectCode(t, `too large`, err, msg.ErrTooLarge)

	_, err = ct.Search(ctx, `ABC`, `A`, []match.Algorithm{`boyer_moore`}, nil)
	expectCode(t, `unknown algorithm`, err, msg.ErrInvalidRequest)

	for _, test := range []struct {
		Name string
		Data string
		Code int
	}{
		{"illegible", `{`, msg.ErrIllegibleRequest},
		{"noJob", `{"search":{"text":"A","pattern":"A"}}`, msg.ErrInvalidRequest},
		{"noCommand", `{"job":"1"}`, msg.ErrUnsupportedCommand},
		{"noText", `{"job":"1","search":{"pattern":"A"}}`, msg.ErrInvalidRequest},
		{"noPattern", `{"job":"1","search":{"text":"A"}}`, msg.ErrInvalidRequest},
		{"noLPSPattern", `{"job":"1","lps":{}}`, msg.ErrInvalidRequest},
	} {
		nm, err := ct.conn.RequestWithContext(ctx, ct.options.WorkerSubject, []byte(test.Data))
		if err != nil {
			t.Fatal(err)
		}
		var rsp msg.WorkerResponse
		if err := json.Unmarshal(nm.Data, &rsp); err != nil {
			t.Fatal(err)
		}
		if rsp.Error == nil {
			t.Errorf(`%v: expected an error, got %s`, test.Name, nm.Data)
			continue
		}
		expectCode(t, test.Name, *rsp.Error, test.Code)
	}
}

func expectCode(t *testing.T, name string, err error, code int) {
	t.Helper()
	var e msg.Error
	if !errors.As(err, &e) {
		t.Errorf(`%v: expected a worker error, got %v`, name, err)
		return
	}
	if e.Code != code {
		t.Errorf(`%v: got code %v (%v), want %v`, name, e.Code, e.Err, code)
	}
}
