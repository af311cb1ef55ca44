// Package ws implements the server-side WebSocket endpoint: the opening
// handshake's downstream state machine, heartbeat liveness, the typed
// write surface, the single-reader receive loop, and the close
// orchestrator that reconciles local/peer close intent (spec.md).
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wsgateway/internal/constants"
	"wsgateway/internal/logger"
)

// JSONEncoder/JSONDecoder let send_json/receive_json swap codecs per call
// (spec.md section 6). Both github.com/goccy/go-json and
// github.com/json-iterator/go satisfy these via their package-level
// Marshal/Unmarshal functions.
type (
	JSONEncoder func(v interface{}) ([]byte, error)
	JSONDecoder func(data []byte, v interface{}) error
)

// Config bundles the handshake-time options spec.md section 3 calls
// immutable after prepare: Protocols, timeouts, autoclose/autoping,
// heartbeat, and max message size.
type Config struct {
	Protocols          []string
	CloseTimeout       time.Duration
	ReceiveTimeout     time.Duration
	Autoclose          bool
	Autoping           bool
	Heartbeat          time.Duration // 0 disables the scheduler
	MaxMsgSize         int64         // 0 disables the cap
	CompressionAllowed bool

	DefaultJSONEncoder JSONEncoder
	DefaultJSONDecoder JSONDecoder
}

// Endpoint is the per-accepted-upgrade object described by spec.md section
// 3. One goroutine owns Receive at a time; Close may run from any other
// goroutine and coordinates with an in-flight Receive via waiting/wake.
type Endpoint struct {
	ID uuid.UUID

	cfg    Config
	log    *slog.Logger
	writer FramedWriter
	reader FramedReader

	mu                sync.Mutex
	negotiatedProto   string
	compressEnabled   bool
	noContextTakeover bool
	closed            bool
	closing           bool
	closeCode         int
	exception         error
	connLostReads     int
	eofSent           bool

	// waiting is non-nil only while a Receive is suspended reading from
	// reader.Frames() (spec.md section 3 invariant 4). Close injects the
	// CLOSING sentinel into the reader source and then blocks on waiting
	// to know the reader has observed intent and returned.
	waiting chan struct{}

	heartbeatTimer    *time.Timer
	pongDeadlineTimer *time.Timer

	transport *gorillaTransport // non-nil only for the gorilla-backed constructor; used for forceClose
}

// newEndpoint wires a FramedWriter/FramedReader pair that has already
// completed the RFC 6455 handshake into an Endpoint with heartbeat armed,
// matching aiohttp's _post_start + _reset_heartbeat.
func newEndpoint(id uuid.UUID, cfg Config, writer FramedWriter, reader FramedReader, negotiatedProto string, compressEnabled, noContextTakeover bool, transport *gorillaTransport) *Endpoint {
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = constants.DefaultCloseTimeout
	}
	ep := &Endpoint{
		ID:                id,
		cfg:               cfg,
		log:               logger.WithConnID(logger.Default(), id),
		writer:            writer,
		reader:            reader,
		negotiatedProto:   negotiatedProto,
		compressEnabled:   compressEnabled,
		noContextTakeover: noContextTakeover,
		transport:         transport,
	}
	ep.resetHeartbeat()
	return ep
}

// Closed reports whether the endpoint has latched to its terminal state
// (spec.md section 3 invariant 3: once true, CloseCode is always set).
func (e *Endpoint) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// CloseCode returns the close code recorded on the terminal transition, or
// 0 if the endpoint hasn't closed yet.
func (e *Endpoint) CloseCode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeCode
}

// NegotiatedProtocol returns the subprotocol chosen at handshake time, or
// "" if none was negotiated.
func (e *Endpoint) NegotiatedProtocol() string {
	return e.negotiatedProto
}

// CompressEnabled reports whether permessage-deflate was negotiated.
func (e *Endpoint) CompressEnabled() bool {
	return e.compressEnabled
}

// NoContextTakeover reports whether the negotiated compression disables
// context takeover.
func (e *Endpoint) NoContextTakeover() bool {
	return e.noContextTakeover
}

// Exception returns the captured cause of an abnormal terminal transition,
// if any.
func (e *Endpoint) Exception() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exception
}

// Iterate returns a channel yielding one Receive result at a time, closing
// it once the returned message type is CLOSE, CLOSING, or CLOSED (spec.md
// section 4.F: "the endpoint may be used as a lazy sequence of messages").
// A receive error terminates the sequence after delivering the final
// ERROR message.
func (e *Endpoint) Iterate() <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			msg, err := e.Receive()
			if err != nil {
				out <- Message{Type: MsgError, Err: err}
				return
			}
			out <- msg
			switch msg.Type {
			case MsgClose, MsgClosing, MsgClosed:
				return
			}
		}
	}()
	return out
}
