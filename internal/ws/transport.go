package ws

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
)

// FramedWriter is the write-side external collaborator spec.md section 6
// delegates to: control and data frame encoding, with backpressure handled
// by the underlying transport. An Endpoint never writes to the wire
// directly; it only ever calls through this interface (component C).
type FramedWriter interface {
	Ping(payload []byte) error
	Pong(payload []byte) error
	Send(payload []byte, binary bool, compress *bool) error
	Close(code int, message []byte) error
}

// FramedReader is the flow-controlled queue of decoded frames spec.md
// section 6 calls the "FramedReader source". Frames returns the channel a
// single consumer (the Receive Coordinator) drains; once the background
// pump observes a terminal condition it closes the channel after pushing a
// final MsgClose/MsgError record, and Err reports the raw cause.
type FramedReader interface {
	Frames() <-chan Message
	Err() error
	// Inject feeds a message into the same stream Frames() yields from,
	// out of band from the background pump. The Close Orchestrator uses
	// this to deliver the synthetic CLOSING sentinel to a suspended
	// receive (spec.md section 6: "feed_data(record, size) injected
	// out-of-band for the close interlock").
	Inject(msg Message)
}

// gorillaTransport adapts a *websocket.Conn — the teacher's chosen
// framing library — into FramedWriter/FramedReader. It owns exactly one
// background read-pump goroutine per connection, generalizing the
// teacher's client.go readPump/writePump pair from a broadcast-only,
// fire-and-forget shape into full duplex with real backpressure.
type gorillaTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	frames  chan Message
	wg      conc.WaitGroup
	errMu   sync.Mutex
	lastErr error
}

func newGorillaTransport(conn *websocket.Conn, maxMsgSize int64) *gorillaTransport {
	t := &gorillaTransport{
		conn:   conn,
		frames: make(chan Message, frameQueueSize),
	}
	if maxMsgSize > 0 {
		conn.SetReadLimit(maxMsgSize)
	}
	// Ping/Pong/Close are normally handled transparently (and, for Ping,
	// auto-answered) inside gorilla's read loop. That auto-answer belongs
	// to our own Receive Coordinator's autoping policy instead, so the
	// handlers here only record arrival; they never write back themselves.
	conn.SetPingHandler(func(appData string) error {
		t.push(Message{Type: MsgPing, Data: []byte(appData)})
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		t.push(Message{Type: MsgPong, Data: []byte(appData)})
		return nil
	})
	conn.SetCloseHandler(func(code int, text string) error {
		// Returning nil here (instead of gorilla's default, which writes
		// its own close frame back) leaves the close handshake entirely
		// to the Close Orchestrator.
		return nil
	})

	t.wg.Go(t.pump)
	return t
}

const frameQueueSize = 16

func (t *gorillaTransport) push(msg Message) {
	t.frames <- msg
}

func (t *gorillaTransport) setErr(err error) {
	t.errMu.Lock()
	t.lastErr = err
	t.errMu.Unlock()
}

func (t *gorillaTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.lastErr
}

func (t *gorillaTransport) Frames() <-chan Message {
	return t.frames
}

func (t *gorillaTransport) Inject(msg Message) {
	t.push(msg)
}

// pump is the single reader goroutine. Invariant 2 of spec.md section 3
// (at most one receive in flight) is upheld at the Endpoint layer, not
// here — this goroutine runs for the whole connection lifetime and is the
// only caller of conn.ReadMessage, exactly like the teacher's readPump.
func (t *gorillaTransport) pump() {
	defer close(t.frames)
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				t.push(Message{Type: MsgClose, CloseCode: closeErr.Code, CloseText: closeErr.Text})
				return
			}
			t.setErr(classifyReadErr(err))
			t.push(Message{Type: MsgError, Err: classifyReadErr(err)})
			return
		}
		switch mt {
		case websocket.TextMessage:
			t.push(Message{Type: MsgText, Data: data})
		case websocket.BinaryMessage:
			t.push(Message{Type: MsgBinary, Data: data})
		}
	}
}

// classifyReadErr normalizes the handful of error shapes gorilla and the
// underlying net.Conn can surface into the io.EOF / net.Error / opaque
// buckets receive.go's error classification (spec.md section 4.D) expects.
func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

func (t *gorillaTransport) Ping(payload []byte) error {
	return t.writeControl(websocket.PingMessage, payload)
}

func (t *gorillaTransport) Pong(payload []byte) error {
	return t.writeControl(websocket.PongMessage, payload)
}

func (t *gorillaTransport) writeControl(frameType int, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteControl(frameType, payload, time.Now().Add(writeWait))
}

const writeWait = 10 * time.Second

func (t *gorillaTransport) Send(payload []byte, binary bool, compress *bool) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if compress != nil {
		t.conn.EnableWriteCompression(*compress)
	}
	frameType := websocket.TextMessage
	if binary {
		frameType = websocket.BinaryMessage
	}
	return t.conn.WriteMessage(frameType, payload)
}

func (t *gorillaTransport) Close(code int, message []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, string(message)), time.Now().Add(writeWait))
}

// forceClose tears down the raw network connection, used by the heartbeat
// scheduler when a pong deadline is missed (spec.md section 4.B).
func (t *gorillaTransport) forceClose() error {
	return t.conn.Close()
}
