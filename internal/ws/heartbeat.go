package ws

import (
	"time"

	"github.com/sourcegraph/conc"

	"wsgateway/internal/constants"
)

// resetHeartbeat cancels any pending timers and, if a heartbeat period is
// configured and the endpoint isn't closed, arms a fresh ping timer
// (spec.md section 3 invariant 5, section 4.B). Called after handshake and
// after every successfully-read frame.
func (e *Endpoint) resetHeartbeat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetHeartbeatLocked()
}

func (e *Endpoint) resetHeartbeatLocked() {
	e.cancelHeartbeatLocked()
	if e.cfg.Heartbeat <= 0 || e.closed {
		return
	}
	e.heartbeatTimer = time.AfterFunc(e.cfg.Heartbeat, e.sendHeartbeat)
}

func (e *Endpoint) cancelHeartbeatLocked() {
	if e.pongDeadlineTimer != nil {
		e.pongDeadlineTimer.Stop()
		e.pongDeadlineTimer = nil
	}
	if e.heartbeatTimer != nil {
		e.heartbeatTimer.Stop()
		e.heartbeatTimer = nil
	}
}

// cancelHeartbeat is the externally-callable, lock-taking form used by the
// close orchestrator, mirroring resetHeartbeat's own locking.
func (e *Endpoint) cancelHeartbeat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelHeartbeatLocked()
}

// sendHeartbeat fires when the ping timer expires. The ping write is
// dispatched on a detached goroutine (spec.md section 4.B: "the ping
// dispatch is decoupled from the timer callback — the timer must not await
// the write"); liveness is judged by the pong-deadline timer, not by
// whether the write itself succeeds.
func (e *Endpoint) sendHeartbeat() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	pongHeartbeat := e.cfg.Heartbeat / 2
	e.mu.Unlock()

	var wg conc.WaitGroup
	wg.Go(func() {
		_ = e.writer.Ping(nil)
	})

	e.mu.Lock()
	if !e.closed {
		if e.pongDeadlineTimer != nil {
			e.pongDeadlineTimer.Stop()
		}
		e.pongDeadlineTimer = time.AfterFunc(pongHeartbeat, e.pongNotReceived)
	}
	e.mu.Unlock()
}

// pongNotReceived fires when no pong arrived within pongHeartbeat of the
// last ping. The connection is treated as lost: closed latches, the close
// code is 1006, and the transport is torn down directly since there is no
// point attempting a graceful close handshake with a peer that isn't
// answering (spec.md testable property 6).
func (e *Endpoint) pongNotReceived() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.closeCode = constants.CloseAbnormal
	e.exception = &TimeoutError{Op: "heartbeat"}
	e.cancelHeartbeatLocked()
	e.mu.Unlock()

	e.log.Warn("heartbeat pong not received, closing connection", "close_code", constants.CloseAbnormal)
	if e.transport != nil {
		_ = e.transport.forceClose()
	}
}
