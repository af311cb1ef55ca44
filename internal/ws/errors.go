package ws

import "fmt"

// NotPreparedError reports an operation invoked before the handshake
// completed (spec.md section 3 invariant 6), or a send invoked after the
// endpoint has closed.
type NotPreparedError struct {
	Op string
}

func (e *NotPreparedError) Error() string {
	return fmt.Sprintf("websocket endpoint not usable: %s called before handshake completion or after close", e.Op)
}

// NotSupportedError reports an operation this endpoint never implements,
// regardless of handshake or close state (spec.md section 4.C rule 4: Write
// always fails because this is a message-oriented endpoint, not a raw byte
// stream).
type NotSupportedError struct {
	Op string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("websocket endpoint does not support %s: message-oriented, not a byte stream", e.Op)
}

// ConcurrentReceiveError reports a second Receive call while one is already
// in flight (spec.md section 3 invariant 2).
type ConcurrentReceiveError struct{}

func (e *ConcurrentReceiveError) Error() string {
	return "concurrent call to Receive is not allowed"
}

// AlreadyClosedError reports Receive called repeatedly on a closed endpoint
// once the attempt count reaches constants.ConnLostAccessThreshold.
type AlreadyClosedError struct {
	Attempts int
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("websocket connection is closed (receive attempted %d times since)", e.Attempts)
}

// WrongMessageTypeError reports ReceiveText/ReceiveBytes/ReceiveJSON
// receiving a message of an unexpected kind.
type WrongMessageTypeError struct {
	Want MsgType
	Got  MsgType
}

func (e *WrongMessageTypeError) Error() string {
	return fmt.Sprintf("received message type %s, want %s", e.Got, e.Want)
}

// TimeoutError reports a heartbeat, receive, or close-handshake deadline
// exceeded.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("websocket %s timed out", e.Op)
}

// ProtocolError reports a framing-layer violation from the peer, carrying
// the close code that should be sent back.
type ProtocolError struct {
	Code   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("websocket protocol error (close code %d): %s", e.Code, e.Reason)
}

// TransportError reports the underlying transport failing during a write or
// control operation. SendJSON and ReceiveJSON also use it to wrap a JSON
// encode or decode failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("websocket transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
