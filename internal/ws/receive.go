package ws

import (
	"errors"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"wsgateway/internal/constants"
)

// Receive returns one message or a synthetic terminal event (spec.md
// section 4.D). At most one Receive may be in flight at a time; a second
// concurrent call fails fast with ConcurrentReceiveError. An explicit
// timeout overrides cfg.ReceiveTimeout for this call only; omit it (or
// pass 0) to fall back to the configured default, which itself may be
// unbounded.
func (e *Endpoint) Receive(timeout ...time.Duration) (Message, error) {
	if e.reader == nil {
		return Message{}, &NotPreparedError{Op: "receive"}
	}

	e.mu.Lock()
	if e.waiting != nil {
		e.mu.Unlock()
		return Message{}, &ConcurrentReceiveError{}
	}
	if e.closed {
		e.connLostReads++
		attempts := e.connLostReads
		e.mu.Unlock()
		if attempts >= constants.ConnLostAccessThreshold {
			return Message{}, &AlreadyClosedError{Attempts: attempts}
		}
		return closedMessage, nil
	}
	if e.closing {
		e.mu.Unlock()
		return closingMessage, nil
	}
	waitCh := make(chan struct{})
	e.waiting = waitCh
	e.mu.Unlock()

	effective := e.cfg.ReceiveTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		effective = timeout[0]
	}

	defer func() {
		e.mu.Lock()
		e.waiting = nil
		e.mu.Unlock()
		close(waitCh)
	}()

	for {
		msg, rerr := e.readOne(effective)
		if rerr != nil {
			e.mu.Lock()
			e.closeCode = constants.CloseAbnormal
			e.mu.Unlock()
			return Message{}, rerr
		}
		e.resetHeartbeat()

		switch msg.Type {
		case MsgClosing:
			e.mu.Lock()
			e.closing = true
			e.mu.Unlock()
			return msg, nil

		case MsgClose:
			e.mu.Lock()
			e.closing = true
			e.closeCode = msg.CloseCode
			autoclose := e.cfg.Autoclose && !e.closed
			e.mu.Unlock()
			if autoclose {
				e.closeInternal(msg.CloseCode, nil)
			}
			return msg, nil

		case MsgPing:
			if e.cfg.Autoping {
				_ = e.writer.Pong(msg.Data)
				continue
			}
			return msg, nil

		case MsgPong:
			if e.cfg.Autoping {
				continue
			}
			return msg, nil

		case MsgError:
			return e.classifyReceiveError(msg)

		default:
			return msg, nil
		}
	}
}

// readOne blocks on the single framed-message source for up to timeout
// (0 means unbounded), matching the one consumer spec.md section 5
// requires.
func (e *Endpoint) readOne(timeout time.Duration) (Message, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case msg, ok := <-e.reader.Frames():
		if !ok {
			return Message{Type: MsgError, Err: io.EOF}, nil
		}
		return msg, nil
	case <-timeoutCh:
		return Message{}, &TimeoutError{Op: "receive"}
	}
}

// classifyReceiveError applies spec.md section 4.D's error classification
// to a read failure reported as a MsgError record: EOF closes normally,
// a framing-layer protocol error initiates a close with the peer's code,
// and anything else is captured as an exception and treated as abnormal.
func (e *Endpoint) classifyReceiveError(msg Message) (Message, error) {
	err := msg.Err
	if errors.Is(err, io.EOF) {
		// The stream has ended, so no peer CLOSE can follow: mark closing so
		// closeInternal does not wait for one.
		e.mu.Lock()
		e.closeCode = constants.CloseNormalClosure
		e.closing = true
		e.mu.Unlock()
		e.closeInternal(constants.CloseNormalClosure, nil)
		return closedMessage, nil
	}

	var pe *ProtocolError
	if errors.As(err, &pe) {
		e.mu.Lock()
		e.closing = true
		e.mu.Unlock()
		e.closeInternal(pe.Code, []byte(pe.Reason))
		return Message{Type: MsgError, Err: pe}, nil
	}

	e.mu.Lock()
	e.exception = err
	e.closing = true
	e.mu.Unlock()
	e.closeInternal(constants.CloseAbnormal, nil)
	return Message{Type: MsgError, Err: err}, nil
}

// ReceiveText receives one message and rejects anything but TEXT.
func (e *Endpoint) ReceiveText(timeout ...time.Duration) (string, error) {
	msg, err := e.Receive(timeout...)
	if err != nil {
		return "", err
	}
	if msg.Type != MsgText {
		return "", &WrongMessageTypeError{Want: MsgText, Got: msg.Type}
	}
	return string(msg.Data), nil
}

// ReceiveBytes receives one message and rejects anything but BINARY.
func (e *Endpoint) ReceiveBytes(timeout ...time.Duration) ([]byte, error) {
	msg, err := e.Receive(timeout...)
	if err != nil {
		return nil, err
	}
	if msg.Type != MsgBinary {
		return nil, &WrongMessageTypeError{Want: MsgBinary, Got: msg.Type}
	}
	return msg.Data, nil
}

// ReceiveJSON receives one TEXT message and decodes it into v using the
// supplied decoder, defaulting to github.com/json-iterator/go — a
// deliberately different codec from SendJSON's default encoder, since
// spec.md section 6 treats encode/decode as independently pluggable.
func (e *Endpoint) ReceiveJSON(v interface{}, decoder JSONDecoder, timeout ...time.Duration) error {
	msg, err := e.Receive(timeout...)
	if err != nil {
		return err
	}
	if msg.Type != MsgText {
		return &WrongMessageTypeError{Want: MsgText, Got: msg.Type}
	}
	dec := decoder
	if dec == nil {
		dec = e.cfg.DefaultJSONDecoder
	}
	if dec == nil {
		dec = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal
	}
	if err := dec(msg.Data, v); err != nil {
		return &TransportError{Op: "receive_json", Err: err}
	}
	return nil
}
