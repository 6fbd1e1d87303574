// Package nats provides a client that asks a worker process to search texts over NATS.  This is useful when searches
// should run on machines dedicated to them, or when several processes share a pool of workers.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/configuration"
	"github.com/swdunlop/match-go/internal/slog"
	"github.com/swdunlop/match-go/nats/internal"
	msg "github.com/swdunlop/match-go/nats/protocol"
	"github.com/swdunlop/match-go/trace"
)

// NewNATS creates a new client using the provided NATS connection and configuration.  If conn is nil, a connection
// is made using the nats_url, nats_client_name, nats_nk and nats_ca options and closed by Release.  The configuration
// should specify `worker_subject` to identify the workers that will handle requests, otherwise match.worker.default
// will be used.
func NewNATS(conn *nats.Conn, cf configuration.Interface) (*Client, error) {
	ct := new(Client)
	ct.options = ClientOptions{
		WorkerSubject: internal.DefaultSubject,
		StreamTimeout: 5,
	}
	err := configuration.Unmarshal(&ct.options, cf)
	if err != nil {
		return nil, err
	}
	ct.conn = conn
	if ct.conn == nil {
		dial := internal.Defaults(`match-client`)
		err = configuration.Unmarshal(&dial, cf)
		if err != nil {
			return nil, err
		}
		ct.conn, err = dial.Dial(nats.ErrorHandler(ct.handleNatsError))
		if err != nil {
			return nil, err
		}
		ct.release = ct.conn.Close
	}
	ct.nuid = nuid.New()
	ct.stream.done = make(chan struct{})
	ct.stream.inbox = nats.NewInbox()
	ct.stream.ch = make(chan *nats.Msg, 64)
	ct.stream.subscription, err = ct.conn.ChanSubscribe(ct.stream.inbox, ct.stream.ch)
	if err != nil {
		if ct.release != nil {
			ct.release()
		}
		return nil, err
	}
	ct.stream.subscribers = make(map[string]chan<- *msg.WorkerResponse)
	go ct.processStreamResponses()
	return ct, nil
}

// A Client sends search requests to NATS workers.  Clients may be used by several goroutines at once.
type Client struct {
	options ClientOptions

	conn    *nats.Conn
	release func() // used if NewNATS opened the connection
	stream  struct {
		subscription *nats.Subscription
		inbox        string         // used for stream responses
		ch           chan *nats.Msg // used for stream responses, closed when Release is called.
		done         chan struct{}  // closed when the stream handler exits.
		control      sync.Mutex
		subscribers  map[string]chan<- *msg.WorkerResponse
	}
	nuid *nuid.NUID
}

func (ct *Client) handleNatsError(conn *nats.Conn, sub *nats.Subscription, err error) {
	if sub == nil {
		slog.Error(`nats error`, `error`, err)
		return
	}
	switch err {
	case nats.ErrSlowConsumer:
		pendingMsgs, _, err := sub.Pending()
		if err == nil {
			slog.Warn(`nats slow consumer`, `subject`, sub.Subject, `pending`, pendingMsgs)
			return
		}
	}
	slog.Error(`nats error`, `error`, err, `subject`, sub.Subject)
}

// Search asks a worker to search text for pattern with each of the provided algorithms, or every algorithm if none
// are provided.  If fn is not nil, the worker streams its trace events to fn before the response is returned.
// Errors reported by the worker are returned as msg.Error values.
func (ct *Client) Search(
	ctx context.Context, text, pattern string, algorithms []match.Algorithm, fn trace.Func,
) (*msg.SearchResponse, error) {
	job := ct.nuid.Next()
	req := msg.WorkerRequest{Job: job, Search: &msg.SearchRequest{Text: &text, Pattern: &pattern}}
	for _, alg := range algorithms {
		req.Search.Algorithms = append(req.Search.Algorithms, alg.String())
	}
	var streamCh chan *msg.WorkerResponse
	if fn != nil {
		// subscribe before sending, the worker may start streaming before the reply arrives.
		req.Search.Stream = ct.stream.inbox
		streamCh = make(chan *msg.WorkerResponse, 256)
		ct.subscribeJob(job, streamCh)
		defer ct.unsubscribeJob(job)
	}

	ret, err := ct.request(ctx, &req)
	if err != nil {
		return nil, err
	}
	if ret.Search != nil {
		return ret.Search, nil
	}
	if fn == nil {
		return nil, fmt.Errorf(`empty response from worker`) // should only happen when streaming.
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-streamCh:
			switch {
			case !ok:
				return nil, fmt.Errorf(`stream closed`)
			case msg.Error != nil:
				return nil, *msg.Error
			case msg.Stream != nil:
				fn(msg.Stream.Event)
			case msg.Search != nil:
				return msg.Search, nil
			default:
				slog.From(ctx).Warn(`unexpected response`, `job`, job)
			}
		}
	}
}

// Compare asks a worker to search text for pattern with both algorithms, returning the results as a comparison.
func (ct *Client) Compare(ctx context.Context, text, pattern string, fn trace.Func) (*match.Comparison, error) {
	lps, err := ct.LPS(ctx, pattern)
	if err != nil {
		return nil, err
	}
	rsp, err := ct.Search(ctx, text, pattern, []match.Algorithm{match.BruteForce, match.KMP}, fn)
	if err != nil {
		return nil, err
	}
	if len(rsp.Results) != 2 {
		return nil, fmt.Errorf(`expected 2 results from worker, got %v`, len(rsp.Results))
	}
	return &match.Comparison{LPS: lps, BruteForce: rsp.Results[0], KMP: rsp.Results[1]}, nil
}

// LPS asks a worker for the failure function of pattern.
func (ct *Client) LPS(ctx context.Context, pattern string) ([]int, error) {
	ret, err := ct.request(ctx, &msg.WorkerRequest{Job: ct.nuid.Next(), LPS: &msg.LPSRequest{Pattern: &pattern}})
	if err != nil {
		return nil, err
	}
	if ret.LPS == nil {
		return nil, fmt.Errorf(`empty response from worker`)
	}
	return ret.LPS.LPS, nil
}

func (ct *Client) request(ctx context.Context, req *msg.WorkerRequest) (*msg.WorkerResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	slog.From(ctx).Debug(`sending request`, `subject`, ct.options.WorkerSubject, `job`, req.Job)
	nm, err := ct.conn.RequestWithContext(ctx, ct.options.WorkerSubject, data)
	if err != nil {
		return nil, err
	}
	var ret msg.WorkerResponse
	err = json.Unmarshal(nm.Data, &ret)
	if err != nil {
		return nil, err
	}
	if ret.Error != nil {
		return nil, *ret.Error
	}
	return &ret, nil
}

func (ct *Client) subscribeJob(job string, ch chan *msg.WorkerResponse) {
	ct.stream.control.Lock()
	ct.stream.subscribers[job] = ch
	ct.stream.control.Unlock()
}

func (ct *Client) unsubscribeJob(job string) {
	ct.stream.control.Lock()
	delete(ct.stream.subscribers, job)
	ct.stream.control.Unlock()
}

func (ct *Client) processStreamResponses() {
	defer func() {
		defer close(ct.stream.done)
		ct.stream.control.Lock()
		defer ct.stream.control.Unlock()
		for job, ch := range ct.stream.subscribers {
			close(ch)
			delete(ct.stream.subscribers, job)
		}
	}()

	for msg := range ct.stream.ch {
		ct.processStreamData(msg.Data)
	}
}

func (ct *Client) processStreamData(data []byte) {
	var ret msg.WorkerResponse
	err := json.Unmarshal(data, &ret)
	if err != nil {
		slog.Warn(`failed to unmarshal response`, `error`, err)
		return
	}
	job := ret.Job
	ct.stream.control.Lock()
	ch, ok := ct.stream.subscribers[job]
	ct.stream.control.Unlock()
	if !ok {
		slog.Warn(`received response for unknown job`, `job`, job)
		return
	}
	timer := time.NewTimer(time.Duration(ct.options.StreamTimeout) * time.Second)
	defer timer.Stop()
	select {
	case ch <- &ret:
	case <-timer.C:
		slog.Warn(`dropping stream response`, `job`, job)
	}
}

// Release unsubscribes from NATS and closes the NATS connection if NewNATS opened it.
func (ct *Client) Release() {
	if ct.stream.subscription != nil {
		err := ct.stream.subscription.Unsubscribe()
		if err != nil {
			slog.Error(`stream unsubscribe failed`, `error`, err, `subject`, ct.stream.inbox)
		}
	}
	if ct.stream.ch != nil {
		close(ct.stream.ch)
	}
	if ct.stream.done != nil {
		<-ct.stream.done
	}
	if ct.release != nil {
		ct.release()
	}
	ct.conn = nil
}

// ClientOptions describes the options used to create a NATS client.  This is unmarshalled from the configuration
// provided to NewNATS.
type ClientOptions struct {
	// WorkerSubject identifies the NATS subject where requests should be sent.  This defaults to
	// `match.worker.default`, which matches the worker's default WorkerSubject.
	WorkerSubject string `cfg:"worker_subject"`

	// StreamTimeout is how many seconds a streamed trace event may wait for a slow consumer before it is dropped.
	StreamTimeout int `cfg:"stream_timeout"`
}
