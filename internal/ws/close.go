package ws

import (
	"errors"

	"wsgateway/internal/constants"
)

// Close performs the local-initiated close handshake (spec.md section
// 4.E). It returns true if this call performed the close, false if the
// endpoint was already closed. Close never blocks on its own call's
// reader interlock: if a receive is in flight on another goroutine, the
// synthetic CLOSING sentinel is injected into the framed-message source
// and Close waits for that receive to observe it and return before
// sending the close frame, eliminating the race the spec calls out.
func (e *Endpoint) Close(code int, message []byte) (bool, error) {
	if e.writer == nil {
		return false, &NotPreparedError{Op: "close"}
	}
	e.interlockReader()
	return e.closeInternal(code, message), nil
}

// interlockReader is step 2 of spec.md section 4.E: if a Receive is
// currently suspended and the endpoint isn't closed yet, inject CLOSING
// and await its resolution of waiting. A Receive that calls closeInternal
// directly from its own autoclose branch is itself the suspended reader,
// so it never goes through this path.
func (e *Endpoint) interlockReader() {
	e.mu.Lock()
	waitCh := e.waiting
	alreadyClosed := e.closed
	e.mu.Unlock()
	if waitCh != nil && !alreadyClosed {
		e.reader.Inject(closingMessage)
		<-waitCh
	}
}

// closeInternal is spec.md section 4.E steps 3-8: it assumes any reader
// interlock has already been handled (or was never needed, because the
// caller IS the suspended reader) and performs the actual close frame
// exchange.
func (e *Endpoint) closeInternal(code int, message []byte) bool {
	e.cancelHeartbeat()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	wasClosing := e.closing
	e.mu.Unlock()

	if err := e.writer.Close(code, message); err != nil {
		e.mu.Lock()
		e.closeCode = constants.CloseAbnormal
		e.exception = &TransportError{Op: "close", Err: err}
		e.mu.Unlock()
		return true
	}

	if wasClosing {
		e.mu.Lock()
		if e.closeCode == 0 {
			e.closeCode = code
		}
		e.mu.Unlock()
		return true
	}

	msg, rerr := e.readOne(e.cfg.CloseTimeout)

	e.mu.Lock()
	defer e.mu.Unlock()
	if rerr != nil {
		e.closeCode = constants.CloseAbnormal
		var te *TimeoutError
		if errors.As(rerr, &te) {
			e.exception = rerr
		}
		return true
	}
	if msg.Type == MsgClose {
		e.closeCode = msg.CloseCode
	} else {
		e.closeCode = constants.CloseAbnormal
	}
	return true
}

// WriteEOF is a thin shim over Close: if the endpoint never started it
// fails, otherwise it delegates to Close and marks EOF sent exactly once
// (spec.md section 4.E).
func (e *Endpoint) WriteEOF() error {
	if e.writer == nil {
		return &NotPreparedError{Op: "write_eof"}
	}
	e.mu.Lock()
	if e.eofSent {
		e.mu.Unlock()
		return nil
	}
	e.eofSent = true
	e.mu.Unlock()
	_, err := e.Close(constants.CloseNormalClosure, nil)
	return err
}
