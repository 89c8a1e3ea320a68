// Package sse streams build lifecycle events to preview clients.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event names written to the stream.
const (
	TypeBuildStarted  = "build.started"
	TypeBuildFinished = "build.finished"
	TypeBuildFailed   = "build.failed"
	TypeGraphUpdated  = "graph.updated"
)

const (
	historySize  = 64
	clientBuffer = 64
)

// BuildSummary describes a finished build.
type BuildSummary struct {
	BuildID     string         `json:"build_id"`
	Documents   int            `json:"documents"`
	Failed      int            `json:"failed"`
	Diagnostics int            `json:"diagnostics"`
	ByKind      map[string]int `json:"diagnostic_kinds,omitempty"`
	Edges       int            `json:"edges"`
	GraphDigest string         `json:"-"`
	Changed     []string       `json:"changed,omitempty"`
}

type startedPayload struct {
	Seq     uint64   `json:"seq"`
	Changed []string `json:"changed,omitempty"`
}

type finishedPayload struct {
	Seq uint64 `json:"seq"`
	BuildSummary
	DurationMS int64 `json:"duration_ms"`
}

type failedPayload struct {
	Seq        uint64 `json:"seq"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

type graphPayload struct {
	BuildID string `json:"build_id"`
	Edges   int    `json:"edges"`
}

type lifecycle struct {
	kind    string
	seq     uint64
	changed []string
	sum     BuildSummary
	err     error
}

type subscription struct {
	ch     chan []byte
	lastID uint64
}

type message struct {
	id  uint64
	raw []byte
}

// Broker fans build events out to SSE clients.
//
// One goroutine owns every piece of mutable state: clients, the replay
// history, pending builds and the graph throttle. Public methods talk to it
// through channels.
type Broker struct {
	graphMin time.Duration
	seq      atomic.Uint64

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	lifecycleCh   chan lifecycle
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. graph.updated events are at most one per
// graphThrottle; a change inside the window is delivered when it closes.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}
	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		lifecycleCh:   make(chan lifecycle, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	var (
		clients     = make(map[chan []byte]struct{})
		history     []message
		nextID      uint64
		latest      *message
		pending     = make(map[uint64]time.Time)
		graphDigest string
		lastGraph   time.Time
		graphDue    *graphPayload
		graphTimer  = time.NewTimer(time.Hour)
	)
	graphTimer.Stop()
	defer graphTimer.Stop()

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; dropping keeps the loop responsive.
		}
	}
	emit := func(typ string, data any) *message {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		nextID++
		m := message{id: nextID, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", nextID, typ, payload))}
		history = append(history, m)
		if len(history) > historySize {
			history = history[len(history)-historySize:]
		}
		for ch := range clients {
			send(ch, m.raw)
		}
		return &m
	}
	graphChanged := func(sum BuildSummary) {
		if sum.GraphDigest != "" && sum.GraphDigest == graphDigest {
			return
		}
		graphDigest = sum.GraphDigest
		g := &graphPayload{BuildID: sum.BuildID, Edges: sum.Edges}
		if wait := b.graphMin - time.Since(lastGraph); wait > 0 {
			if graphDue == nil {
				graphTimer.Reset(wait)
			}
			graphDue = g
			return
		}
		lastGraph = time.Now()
		emit(TypeGraphUpdated, g)
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			switch {
			case sub.lastID > 0 && len(history) > 0 && history[0].id <= sub.lastID+1:
				for _, m := range history {
					if m.id > sub.lastID {
						send(sub.ch, m.raw)
					}
				}
			case latest != nil:
				send(sub.ch, latest.raw)
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.lifecycleCh:
			switch ev.kind {
			case TypeBuildStarted:
				pending[ev.seq] = time.Now()
				if m := emit(TypeBuildStarted, startedPayload{Seq: ev.seq, Changed: ev.changed}); m != nil {
					latest = m
				}
			case TypeBuildFinished, TypeBuildFailed:
				began, ok := pending[ev.seq]
				if !ok {
					continue
				}
				delete(pending, ev.seq)
				took := time.Since(began).Milliseconds()
				var m *message
				if ev.kind == TypeBuildFailed {
					m = emit(TypeBuildFailed, failedPayload{Seq: ev.seq, Error: ev.err.Error(), DurationMS: took})
				} else {
					m = emit(TypeBuildFinished, finishedPayload{Seq: ev.seq, BuildSummary: ev.sum, DurationMS: took})
				}
				if m != nil {
					latest = m
				}
				if ev.kind == TypeBuildFinished {
					graphChanged(ev.sum)
				}
			}

		case <-graphTimer.C:
			if graphDue != nil {
				lastGraph = time.Now()
				emit(TypeGraphUpdated, graphDue)
				graphDue = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. With lastEventID > 0 the events after it
// are replayed when still held; otherwise the latest build event is sent.
func (b *Broker) Subscribe(lastEventID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscription{ch: ch, lastID: lastEventID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) post(ev lifecycle) {
	if b.closed.Load() {
		return
	}
	select {
	case b.lifecycleCh <- ev:
	case <-b.stopped:
	}
}

// Started announces a rebuild and returns its sequence number, which the
// matching Finished or Failed call must carry.
func (b *Broker) Started(changed []string) uint64 {
	seq := b.seq.Add(1)
	b.post(lifecycle{kind: TypeBuildStarted, seq: seq, changed: changed})
	return seq
}

// Finished reports a successful build. A sequence that is not pending is
// ignored, so each build ends exactly once.
func (b *Broker) Finished(seq uint64, sum BuildSummary) {
	b.post(lifecycle{kind: TypeBuildFinished, seq: seq, sum: sum})
}

// Failed reports a build that produced no manifest.
func (b *Broker) Failed(seq uint64, err error) {
	if err == nil {
		err = errors.New("build failed")
	}
	b.post(lifecycle{kind: TypeBuildFailed, seq: seq, err: err})
}

// ServeHTTP streams events. A Last-Event-ID header resumes a dropped
// connection.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
