// Package msg describes the protocol used between the NATS client and worker.
package msg

import (
	"github.com/swdunlop/match-go"
	"github.com/swdunlop/match-go/trace"
)

// WorkerRequest is sent to the worker on the worker subject to ask it to do something on behalf of the client.  Only
// one of the pointer fields should be non-nil.
type WorkerRequest struct {
	// Job identifies the request, which will be present in responses and stream messages.
	Job string `json:"job,omitempty"`

	// Search is a request to search a text for a pattern.
	Search *SearchRequest `json:"search,omitempty"`

	// LPS is a request for the failure function of a pattern.
	LPS *LPSRequest `json:"lps,omitempty"`
}

// SearchRequest is sent to the worker on the worker subject to request a search.
type SearchRequest struct {
	// Text is searched for occurrences of Pattern.  Both are required, but may be empty; a missing text or pattern
	// is rejected with ErrInvalidRequest.  Code units are the bytes of the JSON decoded strings.
	Text    *string `json:"text,omitempty"`
	Pattern *string `json:"pattern,omitempty"`

	// Algorithms lists the algorithms to use, by name, in the order their results should be returned.  If omitted,
	// every algorithm is used, brute force first.
	Algorithms []string `json:"algorithms,omitempty"`

	// Stream identifies a NATS subject where trace events should be sent as the search progresses.  If Stream is
	// set, the worker replies with an empty WorkerResponse, sends StreamResponse messages to Stream, then sends the
	// final SearchResponse or Error to Stream.
	Stream string `json:"stream,omitempty"`
}

// LPSRequest is sent to the worker on the worker subject to request a failure function.
type LPSRequest struct {
	Pattern *string `json:"pattern,omitempty"`
}

// WorkerResponse is sent from the worker to reply to a WorkerRequest.  Only one of the pointer fields should be
// non-nil.  An empty WorkerResponse is sent if the response will be streamed.
type WorkerResponse struct {
	// Job matches the job id from the WorkerRequest.
	Job string `json:"job,omitempty"`

	// Search is a response to a SearchRequest.
	Search *SearchResponse `json:"search,omitempty"`

	// LPS is a response to an LPSRequest.
	LPS *LPSResponse `json:"lps,omitempty"`

	// Stream carries one trace event of a SearchRequest with a Stream subject.
	Stream *StreamResponse `json:"stream,omitempty"`

	// Error is a response to any request that failed.
	Error *Error `json:"error,omitempty"`
}

// SearchResponse is sent once every requested algorithm has finished.
type SearchResponse struct {
	// Results has one entry per requested algorithm, in request order.
	Results []match.Result `json:"results"`

	// Truncated is true if more trace events were produced than the worker was willing to stream.
	Truncated bool `json:"truncated,omitempty"`
}

// LPSResponse is sent as a reply to an LPSRequest.
type LPSResponse struct {
	LPS []int `json:"lps"`
}

// StreamResponse is sent to the Stream subject of a SearchRequest for each trace event.
type StreamResponse struct {
	Event trace.Event `json:"event"`
}

// Error is used to indicate that a request failed.
type Error struct {
	Code int    `json:"code,omitempty"`
	Err  string `json:"error"`
}

// Error implements the error interface by returning the Err field, ignoring the Code field.
func (e Error) Error() string {
	return e.Err
}

// Error codes.
const (
	ErrUnknown            = iota // omitted error code, indicates an unknown error
	ErrIllegibleRequest          // request was not a valid JSON object
	ErrInvalidRequest            // request is missing required fields or has invalid values
	ErrUnsupportedCommand        // command was not found
	ErrShuttingDown              // worker is shutting down and will not accept new jobs
	ErrBusy                      // worker is busy and cannot accept new jobs at this time
	ErrSearchFailed              // search failed
	ErrTooLarge                  // text and pattern exceed the worker's input limit
)
